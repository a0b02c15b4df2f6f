package headless

import (
	"encoding/json"
	"fmt"
)

// Locator is one strategy for finding the print/PDF control. Script is a
// self-contained expression that marks the first matching element with
// data-pdf-control="1" and evaluates to true, or evaluates to false.
type Locator struct {
	Name   string
	Script string
}

// ControlKeywords are matched case-insensitively against button content.
var ControlKeywords = []string{"tulosta", "pdf", "print", "lataa", "esite"}

var (
	attributeSelectors = []string{
		`[aria-label*="pdf" i]`,
		`[aria-label*="tulosta" i]`,
		`[title*="pdf" i]`,
		`[title*="tulosta" i]`,
		`[data-testid*="print" i]`,
		`[data-testid*="pdf" i]`,
		`a[href$=".pdf" i]`,
		`a[download]`,
	}
	classSelectors = []string{
		`button[class*="print" i]`,
		`button[class*="pdf" i]`,
		`[class*="pdf" i] button`,
		`[class*="print" i] button`,
		`a[class*="pdf" i]`,
		`[class*="tulosta" i]`,
	}
	xpathPatterns = []string{
		`//button[contains(., 'PDF')]`,
		`//button[contains(., 'Tulosta')]`,
		`//button[contains(., 'tulosta')]`,
		`//a[contains(., 'PDF')]`,
		`//div[contains(@class, 'pdf')]//button`,
		`//div[contains(@class, 'print')]//button`,
	}
)

// DefaultLocators returns the cascade in the order it is tried.
func DefaultLocators() []Locator {
	return []Locator{
		{Name: "button-marker-scan", Script: markScript(buttonScan(ControlKeywords))},
		{Name: "css-attribute", Script: markScript(selectorScan(attributeSelectors))},
		{Name: "class-heuristic", Script: markScript(selectorScan(classSelectors))},
		{Name: "xpath-text", Script: markScript(xpathScan(xpathPatterns))},
	}
}

// markScript wraps a finder body that assigns the match to `el`.
func markScript(finder string) string {
	return fmt.Sprintf(`(function() {
	document.querySelectorAll('[data-pdf-control]').forEach(function(n) { n.removeAttribute('data-pdf-control'); });
	var el = null;
	%s
	if (!el) { return false; }
	el.setAttribute('data-pdf-control', '1');
	return true;
})()`, finder)
}

func buttonScan(keywords []string) string {
	return fmt.Sprintf(`var keywords = %s;
	var buttons = document.querySelectorAll('button');
	for (var i = 0; i < buttons.length && !el; i++) {
		var content = ((buttons[i].innerHTML || '') + ' ' + (buttons[i].innerText || '')).toLowerCase();
		for (var k = 0; k < keywords.length; k++) {
			if (content.indexOf(keywords[k]) !== -1) { el = buttons[i]; break; }
		}
	}`, jsArray(keywords))
}

func selectorScan(selectors []string) string {
	return fmt.Sprintf(`var selectors = %s;
	for (var i = 0; i < selectors.length && !el; i++) {
		try { el = document.querySelector(selectors[i]); } catch (e) {}
	}`, jsArray(selectors))
}

func xpathScan(patterns []string) string {
	return fmt.Sprintf(`var patterns = %s;
	for (var i = 0; i < patterns.length && !el; i++) {
		try {
			el = document.evaluate(patterns[i], document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue;
		} catch (e) {}
	}`, jsArray(patterns))
}

// jsArray renders items as a JavaScript array literal.
func jsArray(items []string) string {
	b, _ := json.Marshal(items)
	return string(b)
}
