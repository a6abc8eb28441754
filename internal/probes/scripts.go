package probes

// selectorHelper defines cssPath(el), which builds a selector that
// document.querySelector resolves back to el.
const selectorHelper = `
const cssPath = (el) => {
  const parts = [];
  while (el && el.nodeType === 1 && el !== document.documentElement) {
    if (el.id) {
      parts.unshift("#" + CSS.escape(el.id));
      break;
    }
    let part = el.tagName.toLowerCase();
    const parent = el.parentElement;
    if (parent) {
      const same = Array.from(parent.children).filter(c => c.tagName === el.tagName);
      if (same.length > 1) part += ":nth-of-type(" + (same.indexOf(el) + 1) + ")";
    }
    parts.unshift(part);
    el = parent;
  }
  return parts.join(" > ");
};
const isVisible = (el) => {
  const st = getComputedStyle(el);
  if (st.display === "none" || st.visibility === "hidden" || parseFloat(st.opacity) === 0) return false;
  const r = el.getBoundingClientRect();
  return r.width > 0 && r.height > 0;
};
const textOf = (el) => (el.innerText || el.textContent || el.value || "").replace(/\s+/g, " ").trim();
`

// script wraps body in an IIFE with the shared helpers in scope.
func script(body string) string {
	return "(() => {" + selectorHelper + body + "\n})()"
}

// asyncScript is script for bodies that await.
func asyncScript(body string) string {
	return "(async () => {" + selectorHelper + body + "\n})()"
}
