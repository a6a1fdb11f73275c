package bots

import (
	"encoding/json"
	"fmt"
)

const (
	entryImageAttr = "data-autotrack-image"
	entryTagsAttr  = "data-autotrack-tags"
	monetizeAttr   = "data-autotrack-monetize"

	syncButtonText     = "Sync with SoundCloud"
	monetizeButtonText = "Monetize this track"
)

const dismissPopupJS = `document.dispatchEvent(new KeyboardEvent("keydown", {key: "Escape", bubbles: true}))`

const documentReadyJS = `document.readyState === "complete"`

// tagMonetizeButtonsJS marks every monetize button with its index and returns the count
var tagMonetizeButtonsJS = js(`(function() {
	var buttons = Array.from(document.querySelectorAll("button")).filter(function(b) {
		return b.textContent.indexOf(%s) >= 0;
	});
	buttons.forEach(function(b, i) { b.setAttribute(%s, String(i)); });
	return buttons.length;
})()`, monetizeButtonText, monetizeAttr)

const nextPageJS = `(function() {
	var next = document.querySelector('button[aria-label="Go to next page"]');
	if (!next || next.disabled) { return false; }
	next.scrollIntoView();
	next.click();
	return true;
})()`

// publishScripts are the page scripts of the publish worker, bound to its selectors
type publishScripts struct {
	noPlaylist  string
	entryTitles string
	hasSync     string
	clickSync   string
	fillForm    string
	sel         SoundCloudSelectors
}

func newPublishScripts(sel SoundCloudSelectors) publishScripts {
	return publishScripts{
		sel: sel,
		noPlaylist: js(`(function() {
	var box = document.querySelector(%s);
	if (box) { box.click(); }
})()`, sel.NoPlaylist),
		entryTitles: js(`Array.from(document.querySelectorAll(%s)).map(function(e) { return e.value; })`, sel.EntryTitle),
		hasSync:     buttonWithText(syncButtonText, ""),
		clickSync:   buttonWithText(syncButtonText, "b.click();"),
		fillForm: js(`(function() {
	var form = document.querySelector(%s);
	form.querySelector("div > div:nth-child(1) > div > label > div.mt-1 > div > div > button").click();
	var options = form.querySelector("div > div:nth-child(1) > div > label > div.mt-1 > div > ul").getElementsByTagName("li");
	for (var i = 0; i < options.length; i++) {
		if (options[i].textContent == "Explicit") { options[i].click(); break; }
	}
	form.querySelector("div.mb-3 > div > div:nth-child(1) > div.flex > label > div.mt-1 > label:nth-child(2) > div > input").click();
	form.querySelector("div:nth-child(15) > div input").click();
	form.querySelector("div:nth-child(16) > button:nth-child(2)").click();
	form.querySelector("div:nth-child(16) > button").click();
})()`, sel.MonetizationForm),
	}
}

// tagEntry marks the image and tag inputs of the i-th upload entry
func (s publishScripts) tagEntry(i int) string {
	return js(`(function(i) {
	var images = document.querySelectorAll(%s);
	var tags = document.querySelectorAll(%s);
	if (i >= images.length || i >= tags.length) { return false; }
	images[i].setAttribute(%s, String(i));
	tags[i].setAttribute(%s, String(i));
	return true;
})(`+fmt.Sprint(i)+`)`, s.sel.EntryImage, s.sel.EntryTags, entryImageAttr, entryTagsAttr)
}

// applyGenre sets genre on every upload entry and saves them
func (s publishScripts) applyGenre(genre string) string {
	return js(`(function(genre) {
	document.querySelectorAll(%s).forEach(function(input) {
		input.value = genre;
		input.dispatchEvent(new Event("input", {bubbles: true}));
		input.dispatchEvent(new Event("change", {bubbles: true}));
	});
	document.querySelectorAll(%s).forEach(function(b) { b.click(); });
})(%s)`, s.sel.EntryGenre, s.sel.SaveButton, genre)
}

func clickMonetizeJS(i int) string {
	return js(`(function() {
	var b = document.querySelector('[' + %s + '="' + %s + '"]');
	if (!b) { return false; }
	b.click();
	return true;
})()`, monetizeAttr, fmt.Sprint(i))
}

func attrSelector(attr string, i int) string {
	return fmt.Sprintf(`[%s="%d"]`, attr, i)
}

// buttonWithText returns a script reporting whether a button containing text
// exists, running action on it (as b) when it does
func buttonWithText(text, action string) string {
	return js(`(function() {
	var b = Array.from(document.querySelectorAll("button")).find(function(e) {
		return e.textContent.indexOf(%s) >= 0;
	});
	if (!b) { return false; }
	`+action+`
	return true;
})()`, text)
}

// js formats a script, encoding every argument as a JavaScript string literal
func js(format string, args ...string) string {
	quoted := make([]any, len(args))
	for i, a := range args {
		b, _ := json.Marshal(a)
		quoted[i] = string(b)
	}
	return fmt.Sprintf(format, quoted...)
}
