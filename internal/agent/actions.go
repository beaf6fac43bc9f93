package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
)

// Action vocabulary exposed to the model. delay is the human-like pause
// primitive the agent is instructed to invoke before each interaction.
const (
	actionClick  = "click"
	actionScroll = "scroll"
	actionType   = "type"
	actionPress  = "press"
	actionDelay  = "delay"
	actionDone   = "done"
	actionAbort  = "abort"
)

// action is one decision returned by the model, as strict JSON.
type action struct {
	Action string  `json:"action"`
	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
	DeltaY int     `json:"dy,omitempty"`
	Text   string  `json:"text,omitempty"`
	Key    string  `json:"key,omitempty"`
	Result string  `json:"result,omitempty"`
	Reason string  `json:"reason,omitempty"`
}

func (a action) describe() string {
	switch a.Action {
	case actionClick:
		return fmt.Sprintf("click at (%.0f, %.0f)", a.X, a.Y)
	case actionScroll:
		return fmt.Sprintf("scroll by %d", a.DeltaY)
	case actionType:
		return fmt.Sprintf("type %q", a.Text)
	case actionPress:
		return fmt.Sprintf("press %s", a.Key)
	case actionDelay:
		return "pause"
	default:
		return a.Action
	}
}

// parseAction unmarshals the model's response after stripping the code fence
// wrapper models habitually add.
func parseAction(raw string) (action, error) {
	cleaned := stripCodeFences(raw)

	var act action
	if err := json.Unmarshal([]byte(cleaned), &act); err != nil {
		return action{}, fmt.Errorf("parse action: %w (response: %.120s)", err, cleaned)
	}
	if act.Action == "" {
		return action{}, fmt.Errorf("action field missing (response: %.120s)", cleaned)
	}
	return act, nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimSuffix(s, "```")
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(s, "```")
	}
	return strings.TrimSpace(s)
}

// execute dispatches one non-terminal action over CDP. Every physical
// interaction is preceded by the 1-3s human-like delay; an explicit delay
// action performs only the pause.
func (m *Miner) execute(ctx context.Context, tabCtx context.Context, act action) error {
	if act.Action == actionDelay {
		m.human.Pause(ctx, time.Second, 3*time.Second)
		return nil
	}

	m.human.Pause(ctx, time.Second, 3*time.Second)

	switch act.Action {
	case actionClick:
		return chromedp.Run(tabCtx, chromedp.MouseClickXY(act.X, act.Y))

	case actionScroll:
		dy := act.DeltaY
		if dy == 0 {
			dy = 400
		}
		script := fmt.Sprintf("window.scrollBy(0, %d);", dy)
		return chromedp.Run(tabCtx,
			chromedp.Evaluate(script, nil),
			chromedp.Sleep(200*time.Millisecond),
		)

	case actionType:
		if act.Text == "" {
			return fmt.Errorf("type action without text")
		}
		return chromedp.Run(tabCtx, chromedp.KeyEvent(act.Text))

	case actionPress:
		key, err := mapKey(act.Key)
		if err != nil {
			return err
		}
		return chromedp.Run(tabCtx, chromedp.KeyEvent(key))

	default:
		return fmt.Errorf("unknown action %q", act.Action)
	}
}

func mapKey(name string) (string, error) {
	switch name {
	case "Enter":
		return kb.Enter, nil
	case "Tab":
		return kb.Tab, nil
	case "Escape":
		return kb.Escape, nil
	case "Backspace":
		return kb.Backspace, nil
	case "ArrowDown":
		return kb.ArrowDown, nil
	case "ArrowUp":
		return kb.ArrowUp, nil
	default:
		return "", fmt.Errorf("unsupported key %q", name)
	}
}
