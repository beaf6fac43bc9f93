package agent

import (
	"fmt"
	"strings"
)

// DefaultTask is the natural-language extraction goal handed to the agent
// when the caller supplies none.
func DefaultTask() string {
	return `Your goal is to extract player prop odds for 'Shots on Target' ('Tiros a Puerta').

Steps:
1. If you are looking at a list of matches, enter the FIRST visible match.
2. Find and open the 'Crear Apuesta', 'Bet Builder', 'Jugador' or 'Player' tab.
3. Locate the 'Tiros a Puerta', 'Shots on Target' or 'Remates' section.
4. Extract the data of EVERY visible player: name, line (e.g. +0.5, +1.5) and the offered odd.

When you have the data, finish with a result in exactly this JSON shape:
{
  "match": "Team A vs Team B",
  "market": "Shots on Target",
  "players": [
    {"name": "Player Name", "line": "+0.5", "odd": "2.50"},
    {"name": "Other Player", "line": "+1.5", "odd": "3.20"}
  ]
}

If the 'Shots on Target' section does not exist, finish with: {"error": "Market not found"}`
}

// observationPrompt frames one observe-decide turn: the task, what has been
// done so far and the strict action vocabulary.
func observationPrompt(task string, history []string) string {
	var b strings.Builder

	b.WriteString("You are controlling a live browser through screenshots. ")
	b.WriteString("The attached image is the current page.\n\nTask:\n")
	b.WriteString(task)
	b.WriteString("\n\n")

	if len(history) > 0 {
		b.WriteString("Actions taken so far:\n")
		start := 0
		if len(history) > 10 {
			start = len(history) - 10
		}
		for _, h := range history[start:] {
			fmt.Fprintf(&b, "- %s\n", h)
		}
		b.WriteString("\n")
	}

	b.WriteString(`Decide the single next action. Respond with ONLY one JSON object, no prose:
{"action": "click", "x": 120, "y": 340, "reason": "why"}
{"action": "scroll", "dy": 400, "reason": "why"}
{"action": "type", "text": "text for the focused input", "reason": "why"}
{"action": "press", "key": "Enter", "reason": "why"}
{"action": "delay", "reason": "pause like a human"}
{"action": "done", "result": "<terminal result exactly as the task demands>"}
{"action": "abort", "reason": "unrecoverable situation"}

Rules:
- Invoke {"action": "delay"} before each click, scroll or type to pace yourself like a human reader.
- Coordinates are pixels in the screenshot.
- Use "done" only when the task's terminal JSON is ready; put it in "result" as a string.`)

	return b.String()
}
