// Package sink validates the agent's terminal output against the expected
// odds schema and persists exactly one output artifact per run.
package sink

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

const (
	structuredArtifact = "extracted_odds.json"
	fallbackArtifact   = "extracted_odds.txt"
)

// Player is one extracted prop line.
type Player struct {
	Name string `json:"name"`
	Line string `json:"line"`
	Odd  string `json:"odd"`
}

// Record is the structured match/market/players result of a successful run.
type Record struct {
	Match   string   `json:"match"`
	Market  string   `json:"market"`
	Players []Player `json:"players"`
}

// Fallback carries the raw agent output when structural parsing fails. The
// type tag is set when a non-textual value of an unrecognized shape was
// coerced.
type Fallback struct {
	RawOutput string `json:"raw_output"`
	TypeTag   string `json:"type,omitempty"`
}

// Result is the in-memory outcome of one ingest. Exactly one of the three
// fields is set: a parsed record, the agent's explicit market-absent reason,
// or the unstructured fallback.
type Result struct {
	Record      *Record
	MarketError string
	Fallback    *Fallback
}

// Sink writes run artifacts under the project data directory.
type Sink struct {
	dataDir string
	log     *zap.Logger
}

func New(dataDir string, log *zap.Logger) *Sink {
	return &Sink{dataDir: dataDir, log: log}
}

// Ingest validates the agent's terminal output. Textual input is parsed
// strictly; malformed structure degrades to a fallback, never an error.
// Non-textual structured values pass through; unrecognized values are coerced
// into a fallback carrying their string form and a type tag. Exactly one
// artifact is written. The returned error covers only artifact I/O faults.
func (s *Sink) Ingest(agentResult any) (*Result, error) {
	switch v := agentResult.(type) {
	case string:
		return s.ingestText(v)
	case *Record:
		return s.writeRecord(v)
	case Record:
		return s.writeRecord(&v)
	case map[string]any:
		return s.ingestMap(v)
	default:
		return s.writeFallback(&Fallback{
			RawOutput: fmt.Sprintf("%v", v),
			TypeTag:   fmt.Sprintf("%T", v),
		})
	}
}

func (s *Sink) ingestText(text string) (*Result, error) {
	cleaned := stripFences(text)

	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &probe); err != nil {
		s.log.Warn("agent output is not valid JSON, storing raw fallback")
		return s.writeFallback(&Fallback{RawOutput: text})
	}

	if raw, ok := probe["error"]; ok {
		var reason string
		if err := json.Unmarshal(raw, &reason); err == nil && reason != "" {
			return s.writeMarketError(reason)
		}
	}

	var rec Record
	if err := json.Unmarshal([]byte(cleaned), &rec); err != nil || !rec.wellFormed() {
		s.log.Warn("agent output does not match the odds schema, storing raw fallback")
		return s.writeFallback(&Fallback{RawOutput: text})
	}

	return s.writeRecord(&rec)
}

// ingestMap accepts an already-structured value as-is, without schema
// validation: the artifact carries the map verbatim.
func (s *Sink) ingestMap(m map[string]any) (*Result, error) {
	if reason, ok := m["error"].(string); ok && reason != "" {
		return s.writeMarketError(reason)
	}

	if err := s.writeJSON(m); err != nil {
		return nil, err
	}

	rec := &Record{}
	if data, err := json.Marshal(m); err == nil {
		_ = json.Unmarshal(data, rec)
	}
	return &Result{Record: rec}, nil
}

func (r *Record) wellFormed() bool {
	return r.Match != "" && r.Market != "" && r.Players != nil
}

func (s *Sink) writeRecord(rec *Record) (*Result, error) {
	if err := s.writeJSON(rec); err != nil {
		return nil, err
	}
	s.log.Info("structured record stored",
		zap.String("match", rec.Match),
		zap.String("market", rec.Market),
		zap.Int("players", len(rec.Players)))
	return &Result{Record: rec}, nil
}

func (s *Sink) writeMarketError(reason string) (*Result, error) {
	if err := s.writeJSON(map[string]string{"error": reason}); err != nil {
		return nil, err
	}
	s.log.Info("agent reported target market absent", zap.String("reason", reason))
	return &Result{MarketError: reason}, nil
}

func (s *Sink) writeFallback(fb *Fallback) (*Result, error) {
	if err := os.MkdirAll(s.dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	path := filepath.Join(s.dataDir, fallbackArtifact)
	if err := os.WriteFile(path, []byte(fb.RawOutput), 0o644); err != nil {
		return nil, fmt.Errorf("write fallback artifact: %w", err)
	}
	s.log.Info("raw fallback stored", zap.String("path", path))
	return &Result{Fallback: fb}, nil
}

func (s *Sink) writeJSON(v any) error {
	if err := os.MkdirAll(s.dataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode artifact: %w", err)
	}
	path := filepath.Join(s.dataDir, structuredArtifact)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write structured artifact: %w", err)
	}
	return nil
}

func stripFences(s string) string {
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
