package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/aguldbeck/ai-outreach-agent/internal/outreach"
)

// Required input columns. Extras are allowed and carried through untouched.
var requiredColumns = []string{"name", "company"}

// ParseStage decodes the uploaded spreadsheet into the lead table, normalizes
// headers and assigns a stable row id per lead.
type ParseStage struct {
	checkpoint int
}

// NewParseStage constructs the parse stage.
func NewParseStage(checkpoint int) *ParseStage {
	return &ParseStage{checkpoint: checkpoint}
}

func (s *ParseStage) Name() string    { return "parse" }
func (s *ParseStage) Checkpoint() int { return s.checkpoint }

func (s *ParseStage) Run(ctx context.Context, in outreach.Artifact, job outreach.Job) (outreach.Artifact, error) {
	table, err := DecodeTable(job.Filename, in.Data)
	if err != nil {
		return outreach.Artifact{}, err
	}

	for i, h := range table.Header {
		table.Header[i] = normalizeHeader(h)
	}

	var missing []string
	for _, col := range requiredColumns {
		if table.ColumnIndex(col) < 0 {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return outreach.Artifact{}, fmt.Errorf(
			"input file missing required columns %v, present: %v", missing, table.Header)
	}
	if len(table.Rows) == 0 {
		return outreach.Artifact{}, fmt.Errorf("input file has no lead rows")
	}

	table.EnsureColumn("row_id", "")
	for i := range table.Rows {
		if table.Value(i, "row_id") == "" {
			table.SetValue(i, "row_id", strconv.Itoa(i+1))
		}
	}

	data, err := EncodeCSV(table)
	if err != nil {
		return outreach.Artifact{}, err
	}
	return outreach.Artifact{Ref: in.Ref, Data: data, Table: table}, nil
}

// normalizeHeader lowercases a header and flattens spacing to underscores, so
// "LinkedIn URL " and "linkedin_url" address the same column.
func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.Join(strings.Fields(h), "_")
}

// ValidateLeadFile checks an upload before it is accepted: supported
// extension, decodable content and the required lead columns.
func ValidateLeadFile(filename string, data []byte) error {
	table, err := DecodeTable(filename, data)
	if err != nil {
		return err
	}
	for i, h := range table.Header {
		table.Header[i] = normalizeHeader(h)
	}
	var missing []string
	for _, col := range requiredColumns {
		if table.ColumnIndex(col) < 0 {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("input file missing required columns %v, present: %v", missing, table.Header)
	}
	return nil
}
