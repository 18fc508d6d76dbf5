package pipeline

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/profiles"
	"github.com/joseph-ayodele/invoice-extractor/internal/record"
	"github.com/joseph-ayodele/invoice-extractor/internal/rules"
	"github.com/joseph-ayodele/invoice-extractor/internal/validate"
)

// ParseStage picks a profile, extracts the record, writes it as JSON and validates it.
type ParseStage struct {
	Registry *profiles.Registry
	Engine   *rules.Engine
	Logger   *slog.Logger
	// Vendor forces a profile by name instead of dispatching on filename and content.
	Vendor string

	mu      sync.Mutex
	schemas map[string]*jsonschema.Schema
}

func NewParseStage(reg *profiles.Registry, vendor string, logger *slog.Logger) *ParseStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &ParseStage{
		Registry: reg,
		Engine:   rules.NewEngine(logger),
		Logger:   logger,
		Vendor:   vendor,
		schemas:  map[string]*jsonschema.Schema{},
	}
}

// ParseOutcome is what the parse stage produced for one document.
type ParseOutcome struct {
	Profile    *profiles.Profile
	Record     *record.Record
	RuleErrors []rules.RuleError
	JSONPath   string
	Report     validate.Report
	ReportPath string
	ShapeError string
}

// Resolve picks the profile for a document: the forced vendor, then the filename prefix, then
// the text content, then the generic profile.
func (s *ParseStage) Resolve(pdfPath, text string) (*profiles.Profile, string, error) {
	if s.Vendor != "" {
		p, ok := s.Registry.Get(s.Vendor)
		if !ok {
			return nil, "", common.NewAppError("UNKNOWN_VENDOR", "no profile named "+s.Vendor, common.ErrInvalidInput)
		}
		return p, "forced", nil
	}
	if p, ok := s.Registry.ForFile(pdfPath); ok {
		return p, "filename", nil
	}
	if p, ok := s.Registry.Sniff(text); ok {
		return p, "content", nil
	}
	if p, ok := s.Registry.Generic(); ok {
		return p, "generic", nil
	}
	return nil, "", common.NewAppError("NO_PROFILE", "no profile matches "+filepath.Base(pdfPath), common.ErrNotFound)
}

// Run parses text with the resolved profile and writes json/<base>.json and validation/<base>.txt.
func (s *ParseStage) Run(pdfPath, base, text, jsonDir, reportDir string) (ParseOutcome, error) {
	var out ParseOutcome
	prof, via, err := s.Resolve(pdfPath, text)
	if err != nil {
		return out, err
	}
	out.Profile = prof
	s.Logger.Debug("profile resolved", "path", pdfPath, "vendor", prof.Name, "via", via, "source", prof.Source)

	rec, ruleErrs := s.Engine.Extract(rules.NewDocument(text), prof.Nodes)
	out.Record, out.RuleErrors = rec, ruleErrs

	data, err := record.Marshal(rec)
	if err != nil {
		return out, err
	}
	if err := os.MkdirAll(jsonDir, 0o755); err != nil {
		return out, fmt.Errorf("create json dir: %w", err)
	}
	out.JSONPath = filepath.Join(jsonDir, base+constants.ExtJSON)
	if err := os.WriteFile(out.JSONPath, data, 0o644); err != nil {
		return out, fmt.Errorf("write json: %w", err)
	}

	// validate what was written, not the in-memory tree
	written, err := readRecord(out.JSONPath)
	if err != nil {
		return out, err
	}
	out.Report = validate.Check(written, text)
	if out.ReportPath, err = validate.WriteReport(reportDir, base, out.Report); err != nil {
		return out, err
	}

	if err := s.checkShape(prof, written); err != nil {
		out.ShapeError = err.Error()
		s.Logger.Warn("record shape check failed", "path", pdfPath, "vendor", prof.Name, "error", err)
	}
	return out, nil
}

func (s *ParseStage) checkShape(prof *profiles.Profile, rec *record.Record) error {
	schema, err := s.schema(prof)
	if err != nil {
		return err
	}
	return validate.CheckShape(schema, rec)
}

func (s *ParseStage) schema(prof *profiles.Profile) (*jsonschema.Schema, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := prof.Name + "\x00" + prof.Source
	if sc, ok := s.schemas[key]; ok {
		return sc, nil
	}
	m, err := validate.BuildSchema(prof.Schema.Required, prof.Shape())
	if err != nil {
		return nil, fmt.Errorf("profile %s schema: %w", prof.Name, err)
	}
	sc, err := validate.CompileSchema(m)
	if err != nil {
		return nil, fmt.Errorf("profile %s schema: %w", prof.Name, err)
	}
	s.schemas[key] = sc
	return sc, nil
}

func readRecord(path string) (*record.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return record.Decode(f)
}
