package browser

import (
	"context"
	"time"
)

// Page is the slice of a controlled browser the join and monitor loops need.
type Page interface {
	Navigate(ctx context.Context, url string) error
	URL(ctx context.Context) (string, error)
	// Call runs a JS function expression with JSON-encoded args and
	// decodes its return value into out (which may be nil).
	Call(ctx context.Context, fn string, out any, args ...any) error
	Screenshot(ctx context.Context, path string) error
	Close() error
}

// ButtonTags are the semantic tags the meeting UI uses for clickable controls.
var ButtonTags = []string{"button", "div[role='button']", "span[role='button']", "a"}

// Probe is a data-driven UI match: each tag is searched in order for an
// element whose text or aria-label contains one of the labels.
type Probe struct {
	Name   string
	Tags   []string
	Labels []string
}

// Find reports whether the probe matches, optionally clicking the first
// match. Script errors count as no match.
func (p Probe) Find(ctx context.Context, page Page, click bool) bool {
	labels := nonEmpty(p.Labels)
	if len(labels) == 0 {
		return false
	}
	for _, tag := range p.Tags {
		var res *string
		if err := page.Call(ctx, FindAndClickJS, &res, labels, tag, click); err != nil {
			continue
		}
		if res == nil {
			continue
		}
		if (click && *res == "clicked") || (!click && *res == "found") {
			return true
		}
	}
	return false
}

// Click clicks the first match.
func (p Probe) Click(ctx context.Context, page Page) bool { return p.Find(ctx, page, true) }

// Present reports a match without clicking.
func (p Probe) Present(ctx context.Context, page Page) bool { return p.Find(ctx, page, false) }

// FillInput sets value on the first input matching any term.
func FillInput(ctx context.Context, page Page, value string, terms []string) bool {
	terms = nonEmpty(terms)
	if len(terms) == 0 {
		return false
	}
	var ok bool
	if err := page.Call(ctx, FillInputJS, &ok, value, terms); err != nil {
		return false
	}
	return ok
}

// FindText returns the first phrase present in the rendered text, or "".
func FindText(ctx context.Context, page Page, phrases []string) string {
	if len(phrases) == 0 {
		return ""
	}
	var res *string
	if err := page.Call(ctx, TextPresenceJS, &res, phrases); err != nil || res == nil {
		return ""
	}
	return *res
}

// HasSelector reports whether any CSS selector matches.
func HasSelector(ctx context.Context, page Page, selectors []string) bool {
	if len(selectors) == 0 {
		return false
	}
	var res *string
	if err := page.Call(ctx, SelectorPresenceJS, &res, selectors); err != nil {
		return false
	}
	return res != nil
}

// ClickByLabel runs the broad label/radio scan.
func ClickByLabel(ctx context.Context, page Page, labels []string) bool {
	var ok bool
	if err := page.Call(ctx, ClickByLabelJS, &ok, labels); err != nil {
		return false
	}
	return ok
}

// nonEmpty drops blank entries, which would match every element.
func nonEmpty(list []string) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// WaitReady polls document.readyState until "complete" or timeout.
func WaitReady(ctx context.Context, page Page, timeout, interval time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		var state string
		if err := page.Call(ctx, ReadyStateJS, &state); err == nil && state == "complete" {
			return true
		}
		if !time.Now().Before(deadline) {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(interval):
		}
	}
}

// Probes is the full heuristic vocabulary for one meeting platform.
type Probes struct {
	ContinueInBrowser   Probe
	NoAudio             Probe
	Dismiss             Probe
	Join                Probe
	ComputerAudio       []Probe // tried in order
	ComputerAudioLabels []string
	NameFields          []string
	InMeeting           Probe
	HangupSelectors     []string
	ExitPhrases         []string
	LoginURLPatterns    []string
}

// DefaultProbes returns the built-in English/Spanish/French/German vocabulary.
func DefaultProbes() Probes {
	computerAudio := []string{"Computer audio", "Audio del equipo", "Audio de l'ordinateur"}
	return Probes{
		ContinueInBrowser: Probe{
			Name:   "continue-in-browser",
			Tags:   ButtonTags,
			Labels: []string{"Continue on this browser", "Continuar en este explorador"},
		},
		NoAudio: Probe{
			Name: "no-audio",
			Tags: ButtonTags,
			Labels: []string{
				"Continue without audio or video",
				"Continue without audio",
				"No usar audio",
				"Continuar sin audio",
			},
		},
		Dismiss: Probe{
			Name:   "dismiss",
			Tags:   ButtonTags,
			Labels: []string{"Dismiss", "Got it", "Close", "Cerrar"},
		},
		Join: Probe{
			Name:   "join",
			Tags:   ButtonTags,
			Labels: []string{"Join now", "Unirse ahora", "Rejoindre maintenant", "Jetzt teilnehmen"},
		},
		ComputerAudio: []Probe{
			{Name: "computer-audio", Tags: []string{"div"}, Labels: computerAudio},
			{Name: "computer-audio", Tags: []string{"span"}, Labels: computerAudio},
			{Name: "computer-audio", Tags: ButtonTags, Labels: computerAudio},
		},
		ComputerAudioLabels: []string{"computer audio", "audio del equipo", "audio de l'ordinateur"},
		NameFields:          []string{"name", "nombre", "nom", "type your name", "escriba su nombre"},
		InMeeting: Probe{
			Name: "in-meeting",
			Tags: []string{"button"},
			Labels: []string{
				"Raise", "Levantar",
				"Chat", "Conversación",
				"React", "Reaccionar",
				"Leave", "Salir",
				"People", "Personas",
			},
		},
		HangupSelectors: []string{
			"#hangup-button",
			"[data-tid='call-hangup']",
			"[data-tid='call-controls-panel']",
		},
		ExitPhrases: []string{
			"you were removed",
			"se le ha eliminado",
			"meeting ended",
			"finalizó la reunión",
			"thank you for attending",
		},
		LoginURLPatterns: []string{"login.microsoft", "login.live.com", "accounts.google.com"},
	}
}

// ControlsVisible reports in-meeting evidence: a control label or a
// known hang-up element.
func (ps Probes) ControlsVisible(ctx context.Context, page Page) bool {
	if ps.InMeeting.Present(ctx, page) {
		return true
	}
	return HasSelector(ctx, page, ps.HangupSelectors)
}
