package browser

import (
	"time"

	"github.com/playwright-community/playwright-go"
)

// Surface is the narrow live-page surface the scripted flow drives. The
// playwright-backed implementation lives here; tests supply fakes.
type Surface interface {
	Finder
	Mouse() Pointer
	Keys() Keyboard
	Navigate(url string, timeout time.Duration) error
	URL() string
	Title() string
}

// Keyboard types like a user.
type Keyboard interface {
	Type(text string) error
	Press(key string) error
}

type pageSurface struct {
	page playwright.Page
}

// NewSurface wraps a playwright page in the Surface interface.
func NewSurface(page playwright.Page) Surface {
	return &pageSurface{page: page}
}

func (p *pageSurface) Navigate(url string, timeout time.Duration) error {
	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(timeout.Milliseconds())),
	})
	return err
}

func (p *pageSurface) ByRole(role, name string) Element {
	loc := p.page.GetByRole(playwright.AriaRole(role), playwright.PageGetByRoleOptions{
		Name:  name,
		Exact: playwright.Bool(true),
	})
	return firstOf(loc)
}

func (p *pageSurface) ByText(text string) Element {
	loc := p.page.GetByText(text, playwright.PageGetByTextOptions{
		Exact: playwright.Bool(false),
	})
	return firstOf(loc)
}

func (p *pageSurface) BySelector(css string) Element {
	return firstOf(p.page.Locator(css))
}

// firstOf narrows a locator to its first DOM-order match, or nil when the
// page currently has no match at all.
func firstOf(loc playwright.Locator) Element {
	count, err := loc.Count()
	if err != nil || count == 0 {
		return nil
	}
	return &pwElement{loc: loc.First()}
}

func (p *pageSurface) Mouse() Pointer { return &pwPointer{mouse: p.page.Mouse()} }

func (p *pageSurface) Keys() Keyboard { return &pwKeyboard{kb: p.page.Keyboard()} }

func (p *pageSurface) URL() string { return p.page.URL() }

func (p *pageSurface) Title() string {
	title, err := p.page.Title()
	if err != nil {
		return ""
	}
	return title
}

type pwElement struct {
	loc playwright.Locator
}

func (e *pwElement) Visible() bool {
	visible, err := e.loc.IsVisible()
	return err == nil && visible
}

func (e *pwElement) Box() (Box, bool) {
	rect, err := e.loc.BoundingBox()
	if err != nil || rect == nil {
		return Box{}, false
	}
	return Box{X: rect.X, Y: rect.Y, Width: rect.Width, Height: rect.Height}, true
}

func (e *pwElement) Click() error {
	return e.loc.Click()
}

func (e *pwElement) ForceClick(timeout time.Duration) error {
	return e.loc.Click(playwright.LocatorClickOptions{
		Force:   playwright.Bool(true),
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
}

func (e *pwElement) Text() string {
	text, err := e.loc.InnerText()
	if err != nil {
		return ""
	}
	return text
}

type pwPointer struct {
	mouse playwright.Mouse
}

func (m *pwPointer) Move(x, y float64, steps int) error {
	return m.mouse.Move(x, y, playwright.MouseMoveOptions{Steps: playwright.Int(steps)})
}

func (m *pwPointer) Wheel(deltaX, deltaY float64) error {
	return m.mouse.Wheel(deltaX, deltaY)
}

type pwKeyboard struct {
	kb playwright.Keyboard
}

func (k *pwKeyboard) Type(text string) error { return k.kb.Type(text) }
func (k *pwKeyboard) Press(key string) error { return k.kb.Press(key) }
