package browser

import "github.com/fortuna/draftlens/internal/dom"

// Scripts evaluated in the page. Each is a function expression invoked by
// call with JSON arguments.

// nodesJS keeps the stamped ids off the host document: ids live in a
// WeakMap keyed by element and a Map from id back to the element.
const nodesJS = `const nodes = window.__draftlensNodes || (window.__draftlensNodes = {
		next: 0, ids: new WeakMap(), byID: new Map()
	});`

// findJS resolves a selector. Node selectors are looked up in the id map,
// anything else is queried on the live document.
const findJS = nodesJS + `
	const find = (sel) => {
		const m = /^\[` + dom.AttrNode + `="([^"]+)"\]$/.exec(sel);
		if (!m) return document.querySelector(sel);
		const el = nodes.byID.get(m[1]);
		return el && el.isConnected ? el : null;
	};`

// snapshotJS serializes a clone of the document. Node ids and
// document-relative tops are written on the clone only, the live tree is
// walked in parallel for layout.
const snapshotJS = `function(nodeAttr, topAttr) {
	` + nodesJS + `
	for (const [id, el] of nodes.byID) {
		if (!el.isConnected) nodes.byID.delete(id);
	}
	const root = document.documentElement;
	const clone = root.cloneNode(true);
	const live = [root, ...root.querySelectorAll('*')];
	const copy = [clone, ...clone.querySelectorAll('*')];
	const scrollY = window.scrollY || 0;
	for (let i = 0; i < live.length && i < copy.length; i++) {
		const el = live[i];
		let id = nodes.ids.get(el);
		if (!id) {
			id = String(++nodes.next);
			nodes.ids.set(el, id);
		}
		nodes.byID.set(id, el);
		copy[i].setAttribute(nodeAttr, id);
		const r = el.getBoundingClientRect();
		if (r.width || r.height) {
			copy[i].setAttribute(topAttr, String(Math.round(r.top + scrollY)));
		}
	}
	return clone.outerHTML;
}`

const clickJS = `function(sel) {
	` + findJS + `
	const el = find(sel);
	if (!el) return false;
	el.click();
	return true;
}`

// clearJS goes through the native value setter so framework-controlled
// inputs see the change.
const clearJS = `function(sel) {
	` + findJS + `
	const el = find(sel);
	if (!el) return false;
	const desc = Object.getOwnPropertyDescriptor(Object.getPrototypeOf(el), 'value');
	if (desc && desc.set) {
		desc.set.call(el, '');
	} else {
		el.value = '';
	}
	el.dispatchEvent(new Event('input', { bubbles: true }));
	el.dispatchEvent(new Event('change', { bubbles: true }));
	return true;
}`

const boundsJS = `function(sel) {
	` + findJS + `
	const el = find(sel);
	if (!el) return { found: false };
	const r = el.getBoundingClientRect();
	return { found: true, x: r.left, y: r.top, width: r.width, height: r.height };
}`

const scrollStateJS = `function(sel) {
	` + findJS + `
	const el = find(sel);
	if (!el) return { found: false };
	return { found: true, top: el.scrollTop, height: el.scrollHeight, clientHeight: el.clientHeight };
}`

const scrollToJS = `function(sel, top) {
	` + findJS + `
	const el = find(sel);
	if (!el) return false;
	el.scrollTo({ top: top, behavior: 'smooth' });
	return true;
}`

const mountJS = `function(m, id, binding) {
	` + findJS + `
	const row = find(m.row);
	if (!row) return 'missing';
	if (row.querySelector('.' + m.className)) return 'exists';
	const b = document.createElement('button');
	b.type = 'button';
	b.className = m.className;
	b.setAttribute(m.attr, id);
	b.title = m.title;
	b.textContent = m.label;
	b.addEventListener('click', (e) => {
		e.preventDefault();
		e.stopPropagation();
		window[binding](id);
	});
	for (const c of m.containers || []) {
		const target = row.querySelector(c);
		if (target) {
			target.appendChild(b);
			return 'mounted';
		}
	}
	if (m.anchor) {
		const anchor = row.querySelector(m.anchor);
		if (anchor) {
			anchor.insertAdjacentElement('afterend', b);
			return 'mounted';
		}
	}
	row.appendChild(b);
	return 'mounted';
}`
