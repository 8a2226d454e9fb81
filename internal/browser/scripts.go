package browser

// The scripts below are JS function expressions invoked through Page.Call.
// Every search descends into same-origin iframes because the call surface
// of the meeting UI is embedded in one. All of them return null or a
// string/bool, never undefined.

// FindAndClickJS(labels, tag, doClick) returns "clicked", "found" or null.
// A visible element matches when its text or aria-label contains a label.
const FindAndClickJS = `function(labels, tag, doClick) {
	var opts = (labels || []).filter(Boolean).map(function(l) { return l.toLowerCase(); });

	function isVisible(el) {
		return !!(el.offsetWidth || el.offsetHeight || el.getClientRects().length);
	}

	function search(doc) {
		if (!doc) return null;
		var els = doc.querySelectorAll(tag);
		for (var i = 0; i < els.length; i++) {
			var el = els[i];
			if (!isVisible(el)) continue;
			var text = (el.innerText || el.textContent || "").toLowerCase().trim();
			var aria = (el.getAttribute("aria-label") || "").toLowerCase();
			for (var j = 0; j < opts.length; j++) {
				if (text.indexOf(opts[j]) !== -1 || aria.indexOf(opts[j]) !== -1) {
					return el;
				}
			}
		}
		var frames = doc.querySelectorAll("iframe");
		for (var k = 0; k < frames.length; k++) {
			try {
				var inner = frames[k].contentDocument || frames[k].contentWindow.document;
				var found = search(inner);
				if (found) return found;
			} catch (e) {}
		}
		return null;
	}

	var found = search(document);
	if (!found) return null;
	if (doClick) {
		found.click();
		return "clicked";
	}
	return "found";
}`

// FillInputJS(value, terms) sets the first input whose placeholder,
// aria-label or name contains a term. Returns true on success.
const FillInputJS = `function(value, terms) {
	var lower = (terms || []).filter(Boolean).map(function(t) { return t.toLowerCase(); });

	function search(doc) {
		if (!doc) return false;
		var inputs = doc.querySelectorAll("input");
		for (var i = 0; i < inputs.length; i++) {
			var el = inputs[i];
			var placeholder = (el.placeholder || "").toLowerCase();
			var aria = (el.getAttribute("aria-label") || "").toLowerCase();
			var name = (el.getAttribute("name") || "").toLowerCase();
			var match = lower.some(function(t) {
				return placeholder.indexOf(t) !== -1 || aria.indexOf(t) !== -1 || name.indexOf(t) !== -1;
			});
			if (!match) continue;

			el.focus();
			var desc = Object.getOwnPropertyDescriptor(window.HTMLInputElement.prototype, "value");
			if (desc && desc.set) {
				desc.set.call(el, value);
			} else {
				el.value = value;
			}
			el.dispatchEvent(new Event("input", { bubbles: true }));
			el.dispatchEvent(new Event("change", { bubbles: true }));
			el.dispatchEvent(new Event("blur", { bubbles: true }));
			return true;
		}
		var frames = doc.querySelectorAll("iframe");
		for (var k = 0; k < frames.length; k++) {
			try {
				var inner = frames[k].contentDocument || frames[k].contentWindow.document;
				if (search(inner)) return true;
			} catch (e) {}
		}
		return false;
	}
	return search(document);
}`

// TextPresenceJS(phrases) returns the first phrase found in any document
// body, or null.
const TextPresenceJS = `function(phrases) {
	var raw = phrases || [];
	var lower = raw.map(function(p) { return (p || "").toLowerCase(); });

	function search(doc) {
		if (!doc || !doc.body) return null;
		var body = (doc.body.innerText || "").toLowerCase();
		for (var i = 0; i < lower.length; i++) {
			if (lower[i] && body.indexOf(lower[i]) !== -1) return raw[i];
		}
		var frames = doc.querySelectorAll("iframe");
		for (var k = 0; k < frames.length; k++) {
			try {
				var inner = frames[k].contentDocument || frames[k].contentWindow.document;
				var found = search(inner);
				if (found) return found;
			} catch (e) {}
		}
		return null;
	}
	return search(document);
}`

// SelectorPresenceJS(selectors) returns the first CSS selector matching
// an element in any document, or null.
const SelectorPresenceJS = `function(selectors) {
	function search(doc) {
		if (!doc) return null;
		for (var i = 0; i < selectors.length; i++) {
			try {
				if (doc.querySelector(selectors[i])) return selectors[i];
			} catch (e) {}
		}
		var frames = doc.querySelectorAll("iframe");
		for (var k = 0; k < frames.length; k++) {
			try {
				var inner = frames[k].contentDocument || frames[k].contentWindow.document;
				var found = search(inner);
				if (found) return found;
			} catch (e) {}
		}
		return null;
	}
	return search(document);
}`

// ClickByLabelJS(labels) is the broad fallback scan for radio-like
// controls: label elements and div[role=radio|checkbox] whose text
// contains a label are clicked. Returns true when something was clicked.
const ClickByLabelJS = `function(labels) {
	var lower = (labels || []).map(function(l) { return (l || "").toLowerCase(); });

	function search(doc) {
		if (!doc) return false;
		var els = doc.querySelectorAll('label, div[role="radio"], div[role="checkbox"]');
		for (var i = 0; i < els.length; i++) {
			var txt = (els[i].innerText || "").toLowerCase();
			for (var j = 0; j < lower.length; j++) {
				if (lower[j] && txt.indexOf(lower[j]) !== -1) {
					els[i].click();
					return true;
				}
			}
		}
		var frames = doc.querySelectorAll("iframe");
		for (var k = 0; k < frames.length; k++) {
			try {
				var inner = frames[k].contentDocument || frames[k].contentWindow.document;
				if (search(inner)) return true;
			} catch (e) {}
		}
		return false;
	}
	return search(document);
}`

// ReadyStateJS() returns document.readyState.
const ReadyStateJS = `function() { return document.readyState; }`
