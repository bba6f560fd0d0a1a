package display

import (
	"fmt"
	"log/slog"
	"strings"

	layershell "github.com/diamondburned/gotk4-layer-shell/pkg/gtk4layershell"
	"github.com/diamondburned/gotk4/pkg/gdk/v4"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"github.com/jmylchreest/reqhud/internal/config"
	"github.com/jmylchreest/reqhud/internal/overlay"
)

// stateClasses are toggled on the container for every render.
var stateClasses = []string{
	overlay.ClassHidden,
	overlay.ClassUrgent,
	overlay.ClassExpiring,
	overlay.ClassBarNormal,
	overlay.ClassBarExpiring,
	"light",
	"dark",
}

// Window is the overlay surface. All methods must run on the GTK main loop.
type Window struct {
	window *gtk.Window
	logger *slog.Logger

	box         *gtk.Box
	titleLbl    *gtk.Label
	fromLbl     *gtk.Label
	descLbl     *gtk.Label
	progressBar *gtk.ProgressBar
	acceptBtn   *gtk.Button
	declineBtn  *gtk.Button

	onAnswer func(accept bool)
	onKey    func(key string) bool
}

// NewWindow creates the overlay window, initially hidden.
func NewWindow(app *gtk.Application, cfg *config.Config, logger *slog.Logger) *Window {
	if logger == nil {
		logger = slog.Default()
	}

	w := &Window{logger: logger}

	w.window = gtk.NewWindow()
	w.window.SetApplication(app)
	w.window.SetDecorated(false)
	w.window.SetResizable(false)
	w.window.AddCSSClass("reqhud")

	layershell.InitForWindow(w.window)
	layershell.SetLayer(w.window, layershell.LayerShellLayerOverlay)
	layershell.SetExclusiveZone(w.window, 0)
	// On-demand focus lets y/n reach the window without stealing input.
	layershell.SetKeyboardMode(w.window, layershell.LayerShellKeyboardModeOnDemand)
	layershell.SetNamespace(w.window, "reqhud-overlay")

	w.buildUI()
	w.connectSignals()
	w.ApplyConfig(cfg)

	return w
}

func (w *Window) buildUI() {
	w.box = gtk.NewBox(gtk.OrientationVertical, 4)
	w.box.AddCSSClass("reqhud-overlay")
	w.box.AddCSSClass(overlay.ClassHidden)

	w.titleLbl = newLabel("reqhud-title")
	w.fromLbl = newLabel("reqhud-from")
	w.descLbl = newLabel("reqhud-description")
	w.descLbl.SetWrap(true)

	w.progressBar = gtk.NewProgressBar()
	w.progressBar.AddCSSClass("reqhud-progress")
	w.progressBar.SetFraction(1)

	w.acceptBtn = gtk.NewButtonWithLabel("[Y] Accept")
	w.acceptBtn.AddCSSClass("reqhud-button")
	w.acceptBtn.AddCSSClass("reqhud-button-accept")

	w.declineBtn = gtk.NewButtonWithLabel("[N] Decline")
	w.declineBtn.AddCSSClass("reqhud-button")
	w.declineBtn.AddCSSClass("reqhud-button-decline")

	buttons := gtk.NewBox(gtk.OrientationHorizontal, 8)
	buttons.AddCSSClass("reqhud-buttons")
	buttons.SetHAlign(gtk.AlignEnd)
	buttons.Append(w.acceptBtn)
	buttons.Append(w.declineBtn)

	w.box.Append(w.titleLbl)
	w.box.Append(w.fromLbl)
	w.box.Append(w.descLbl)
	w.box.Append(w.progressBar)
	w.box.Append(buttons)

	w.window.SetChild(w.box)
}

func newLabel(class string) *gtk.Label {
	lbl := gtk.NewLabel("")
	lbl.AddCSSClass(class)
	lbl.SetXAlign(0)
	lbl.SetHAlign(gtk.AlignStart)
	return lbl
}

func (w *Window) connectSignals() {
	w.acceptBtn.ConnectClicked(func() {
		if w.onAnswer != nil {
			w.onAnswer(true)
		}
	})
	w.declineBtn.ConnectClicked(func() {
		if w.onAnswer != nil {
			w.onAnswer(false)
		}
	})

	keyCtrl := gtk.NewEventControllerKey()
	keyCtrl.ConnectKeyPressed(func(keyval, keycode uint, state gdk.ModifierType) bool {
		r := gdk.KeyvalToUnicode(keyval)
		if r == 0 || w.onKey == nil {
			return false
		}
		return w.onKey(string(rune(r)))
	})
	w.window.AddController(keyCtrl)
}

// SetAnswerHandler sets the callback for the Accept and Decline buttons.
func (w *Window) SetAnswerHandler(fn func(accept bool)) {
	w.onAnswer = fn
}

// SetKeyHandler sets the callback for typed characters. It reports
// whether the key was consumed.
func (w *Window) SetKeyHandler(fn func(key string) bool) {
	w.onKey = fn
}

// ApplyConfig updates size, placement and button labels.
func (w *Window) ApplyConfig(cfg *config.Config) {
	w.acceptBtn.SetLabel(fmt.Sprintf("[%s] Accept", strings.ToUpper(cfg.Keys.Accept)))
	w.declineBtn.SetLabel(fmt.Sprintf("[%s] Decline", strings.ToUpper(cfg.Keys.Decline)))
	w.window.SetDefaultSize(cfg.Display.Width, -1)
	w.window.SetSizeRequest(cfg.Display.Width, -1)
	anchor(w.window, config.Position(cfg.Display.Position), cfg.Display.OffsetX, cfg.Display.OffsetY)
}

// Render draws view. schemeClass is "light" or "dark".
func (w *Window) Render(view overlay.ViewState, schemeClass string) {
	for _, class := range stateClasses {
		w.box.RemoveCSSClass(class)
	}
	for _, class := range view.Classes() {
		w.box.AddCSSClass(class)
	}
	if schemeClass != "" {
		w.box.AddCSSClass(schemeClass)
	}

	if !view.Visible {
		w.window.SetVisible(false)
		return
	}

	w.titleLbl.SetText(view.Request.Title)
	w.fromLbl.SetText(view.Request.From())
	w.descLbl.SetText(view.Request.Description)
	w.descLbl.SetVisible(view.Request.Description != "")
	w.progressBar.SetFraction(view.Fraction())

	if !w.window.Visible() {
		w.window.Present()
	}
}

// Destroy closes the window.
func (w *Window) Destroy() {
	w.window.Destroy()
}

// anchor pins the window to an edge or corner of the output.
func anchor(win *gtk.Window, pos config.Position, offsetX, offsetY int) {
	for _, edge := range []layershell.LayerShellEdge{
		layershell.LayerShellEdgeTop,
		layershell.LayerShellEdgeBottom,
		layershell.LayerShellEdgeLeft,
		layershell.LayerShellEdgeRight,
	} {
		layershell.SetAnchor(win, edge, false)
		layershell.SetMargin(win, edge, 0)
	}

	vertical := layershell.LayerShellEdgeTop
	switch pos {
	case config.PositionBottomLeft, config.PositionBottomRight, config.PositionBottomCenter:
		vertical = layershell.LayerShellEdgeBottom
	}
	layershell.SetAnchor(win, vertical, true)
	layershell.SetMargin(win, vertical, offsetY)

	switch pos {
	case config.PositionTopLeft, config.PositionBottomLeft:
		layershell.SetAnchor(win, layershell.LayerShellEdgeLeft, true)
		layershell.SetMargin(win, layershell.LayerShellEdgeLeft, offsetX)
	case config.PositionTopRight, config.PositionBottomRight:
		layershell.SetAnchor(win, layershell.LayerShellEdgeRight, true)
		layershell.SetMargin(win, layershell.LayerShellEdgeRight, offsetX)
	}
}
