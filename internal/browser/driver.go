// Package browser drives a headless Chrome instance through rod. The driver
// owns one browser and one page for the lifetime of an exploration session.
package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"cartograph/internal/dom"
	"cartograph/internal/logging"
)

// Config tunes the driver.
type Config struct {
	Headless            bool
	NavigationTimeoutMs int
	StabilizeTimeoutMs  int
}

// DefaultConfig returns the standard headless setup.
func DefaultConfig() Config {
	return Config{
		Headless:            true,
		NavigationTimeoutMs: 30000,
		StabilizeTimeoutMs:  30000,
	}
}

func (c Config) navigationTimeout() time.Duration {
	if c.NavigationTimeoutMs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.NavigationTimeoutMs) * time.Millisecond
}

func (c Config) stabilizeTimeout() time.Duration {
	if c.StabilizeTimeoutMs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.StabilizeTimeoutMs) * time.Millisecond
}

// Driver is the rod-backed page controller.
type Driver struct {
	cfg      Config
	browser  *rod.Browser
	page     *rod.Page
	launched *launcher.Launcher
}

// Launch starts Chrome, connects and opens a blank page.
func Launch(ctx context.Context, cfg Config) (*Driver, error) {
	l := launcher.New().Headless(cfg.Headless)
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chrome: %w", err)
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}

	page, err := b.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("open page: %w", err)
	}

	logging.Browser("chrome launched (headless=%v)", cfg.Headless)
	return &Driver{cfg: cfg, browser: b, page: page, launched: l}, nil
}

// Close shuts the browser down and kills the launched process.
func (d *Driver) Close() error {
	var err error
	if d.browser != nil {
		err = d.browser.Close()
	}
	if d.launched != nil {
		d.launched.Cleanup()
	}
	logging.Browser("chrome closed")
	return err
}

// Navigate loads a URL and waits for the load event.
func (d *Driver) Navigate(ctx context.Context, url string) error {
	logging.BrowserDebug("navigate %s", url)
	p := d.page.Context(ctx).Timeout(d.cfg.navigationTimeout())
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return p.WaitLoad()
}

// Click left-clicks the first element matching the selector.
func (d *Driver) Click(ctx context.Context, selector string) error {
	el, err := d.element(ctx, selector)
	if err != nil {
		return err
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

// TypeText focuses the element, clears it and types the text.
func (d *Driver) TypeText(ctx context.Context, selector, text string) error {
	el, err := d.element(ctx, selector)
	if err != nil {
		return err
	}
	if err := el.SelectAllText(); err == nil {
		_ = el.Input("")
	}
	return el.Input(text)
}

// SelectOption sets a select element's value and fires change events, so
// framework listeners see it the same as a user pick.
func (d *Driver) SelectOption(ctx context.Context, selector, value string) error {
	el, err := d.element(ctx, selector)
	if err != nil {
		return err
	}
	_, err = el.Eval(`(val) => {
		this.value = val;
		this.dispatchEvent(new Event('input', { bubbles: true }));
		this.dispatchEvent(new Event('change', { bubbles: true }));
	}`, value)
	if err != nil {
		return fmt.Errorf("select %q on %s: %w", value, selector, err)
	}
	return nil
}

// CurrentURL returns the page's current address.
func (d *Driver) CurrentURL(ctx context.Context) (string, error) {
	info, err := d.page.Context(ctx).Info()
	if err != nil {
		return "", fmt.Errorf("page info: %w", err)
	}
	return info.URL, nil
}

// WaitStable blocks until the page load completes and the DOM stops
// churning, bounded by the stabilize timeout. A timeout is returned as an
// error; callers treat it as advisory.
func (d *Driver) WaitStable(ctx context.Context) error {
	p := d.page.Context(ctx).Timeout(d.cfg.stabilizeTimeout())
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("wait load: %w", err)
	}
	if err := p.WaitDOMStable(500*time.Millisecond, 0.1); err != nil {
		return fmt.Errorf("wait dom stable: %w", err)
	}
	return nil
}

// element resolves a selector to a single rod element. A trailing
// :nth-match(N) suffix is not CSS; it picks the Nth element matching the base
// selector, which querySelector cannot express, so it is resolved here
// through an indexed querySelectorAll.
func (d *Driver) element(ctx context.Context, selector string) (*rod.Element, error) {
	p := d.page.Context(ctx).Timeout(d.cfg.navigationTimeout())
	base, n, ok := splitNthMatch(selector)
	if !ok {
		el, err := p.Element(selector)
		if err != nil {
			return nil, fmt.Errorf("element not found: %s: %w", selector, err)
		}
		return el, nil
	}
	els, err := p.Elements(base)
	if err != nil {
		return nil, fmt.Errorf("element not found: %s: %w", selector, err)
	}
	if n > len(els) {
		return nil, fmt.Errorf("element not found: %s: only %d matches", selector, len(els))
	}
	return els[n-1], nil
}

// splitNthMatch decomposes "sel:nth-match(N)" into its base selector and the
// 1-based match index. ok is false for plain selectors.
func splitNthMatch(selector string) (base string, n int, ok bool) {
	const open = ":nth-match("
	if !strings.HasSuffix(selector, ")") {
		return "", 0, false
	}
	idx := strings.LastIndex(selector, open)
	if idx < 0 {
		return "", 0, false
	}
	num := selector[idx+len(open) : len(selector)-1]
	n, err := strconv.Atoi(num)
	if err != nil || n < 1 {
		return "", 0, false
	}
	return selector[:idx], n, true
}

// Snapshot enumerates the visible interactive elements. Selector generation
// runs in the page: id wins, then a name attribute, then tag plus first
// class, then an nth-of-type path from the nearest id-bearing ancestor.
func (d *Driver) Snapshot(ctx context.Context) ([]dom.SimplifiedElement, error) {
	res, err := d.page.Context(ctx).Evaluate(&rod.EvalOptions{JS: snapshotJS})
	if err != nil {
		return nil, fmt.Errorf("dom snapshot: %w", err)
	}

	var elements []dom.SimplifiedElement
	if err := json.Unmarshal([]byte(res.Value.Str()), &elements); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	logging.BrowserDebug("snapshot captured %d interactive elements", len(elements))
	return elements, nil
}

const snapshotJS = `
() => {
	const interactive = 'a, button, input, select, textarea, [role="button"], [role="link"], [role="menuitem"], [role="tab"], [onclick]';

	const visible = (el) => {
		const rect = el.getBoundingClientRect();
		if (rect.width <= 0 || rect.height <= 0) return false;
		const style = window.getComputedStyle(el);
		return style.display !== 'none' && style.visibility !== 'hidden' && style.opacity !== '0';
	};

	const cssEscape = (s) => (window.CSS && CSS.escape) ? CSS.escape(s) : s.replace(/[^a-zA-Z0-9_-]/g, '\\$&');

	const selectorFor = (el) => {
		if (el.id) return '#' + cssEscape(el.id);
		const name = el.getAttribute('name');
		if (name) {
			const sel = el.tagName.toLowerCase() + '[name="' + name.replace(/"/g, '\\"') + '"]';
			if (document.querySelectorAll(sel).length === 1) return sel;
		}
		const cls = (el.classList && el.classList.length) ? el.classList[0] : null;
		if (cls) {
			const sel = el.tagName.toLowerCase() + '.' + cssEscape(cls);
			if (document.querySelectorAll(sel).length === 1) return sel;
		}
		const path = [];
		let node = el;
		while (node && node.nodeType === Node.ELEMENT_NODE && node !== document.body) {
			if (node.id) {
				path.unshift('#' + cssEscape(node.id));
				break;
			}
			let idx = 1;
			let sib = node.previousElementSibling;
			while (sib) {
				if (sib.tagName === node.tagName) idx++;
				sib = sib.previousElementSibling;
			}
			path.unshift(node.tagName.toLowerCase() + ':nth-of-type(' + idx + ')');
			node = node.parentElement;
		}
		return path.join(' > ');
	};

	const inModal = (el) => {
		let node = el;
		while (node && node !== document.body) {
			const role = node.getAttribute && node.getAttribute('role');
			if (role === 'dialog' || role === 'alertdialog') return true;
			if (node.getAttribute && node.getAttribute('aria-modal') === 'true') return true;
			if (node.classList) {
				for (const c of node.classList) {
					if (c.toLowerCase().includes('modal')) return true;
				}
			}
			node = node.parentElement;
		}
		return false;
	};

	const textOf = (el) => {
		const tag = el.tagName.toUpperCase();
		if (tag === 'INPUT' || tag === 'TEXTAREA') {
			return el.placeholder || el.getAttribute('aria-label') || el.value || '';
		}
		if (tag === 'SELECT') {
			const opt = el.options && el.options[el.selectedIndex];
			return (opt && opt.text) || el.getAttribute('aria-label') || '';
		}
		return (el.innerText || el.textContent || '').trim();
	};

	const results = [];
	for (const el of document.querySelectorAll(interactive)) {
		if (!visible(el)) continue;
		results.push({
			tag: el.tagName.toUpperCase(),
			visibleText: textOf(el),
			selector: selectorFor(el),
			type: el.getAttribute('type') || '',
			role: el.getAttribute('role') || '',
			disabled: !!el.disabled,
			inModal: inModal(el)
		});
	}
	return JSON.stringify(results);
}
`
