package server

import (
	"bytes"
	_ "embed"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed report_schema.json
var reportSchemaJSON []byte

// reportSchema validates incoming report payloads before they are shaped
// into SQL parameters. The schema leaves id optional: synced reports carry a
// client-generated id, uploaded reports get one server-side.
type reportSchema struct {
	schema *jsonschema.Schema
}

func compileReportSchema() (*reportSchema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(reportSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("parse report schema: %w", err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource("report.json", doc); err != nil {
		return nil, fmt.Errorf("add report schema: %w", err)
	}
	schema, err := c.Compile("report.json")
	if err != nil {
		return nil, fmt.Errorf("compile report schema: %w", err)
	}
	return &reportSchema{schema: schema}, nil
}

// Validate checks a raw JSON report against the schema.
func (rs *reportSchema) Validate(raw []byte) error {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("parse report: %w", err)
	}
	if err := rs.schema.Validate(doc); err != nil {
		return fmt.Errorf("invalid report: %w", err)
	}
	return nil
}
