package httpadapter

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/kirillkom/docqa/internal/core/domain"
)

//go:embed openapi.yaml
var openAPISpec []byte

const maxJSONBodyBytes = 1 << 20

// apiContract is the loaded and validated OpenAPI document. Request bodies
// are checked against its component schemas before decoding.
type apiContract struct {
	doc  *openapi3.T
	json []byte
}

func loadContract(ctx context.Context) (*apiContract, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(openAPISpec)
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("validate openapi document: %w", err)
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode openapi document: %w", err)
	}
	return &apiContract{doc: doc, json: raw}, nil
}

// decodeBody reads a JSON body, validates it against the named schema and
// decodes it into dest. An empty body is accepted when allowEmpty is set.
func (c *apiContract) decodeBody(r *http.Request, schemaName string, allowEmpty bool, dest any) error {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxJSONBodyBytes+1))
	if err != nil {
		return domain.WrapError(domain.ErrInvalidInput, "read body", err)
	}
	if len(raw) > maxJSONBodyBytes {
		return domain.WrapError(domain.ErrInvalidInput, "read body", errors.New("body too large"))
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		if allowEmpty {
			return nil
		}
		return domain.WrapError(domain.ErrInvalidInput, "read body", errors.New("request body is required"))
	}

	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return domain.WrapError(domain.ErrInvalidInput, "decode body", err)
	}
	ref, ok := c.doc.Components.Schemas[schemaName]
	if !ok || ref.Value == nil {
		return fmt.Errorf("schema %s is not defined", schemaName)
	}
	if err := ref.Value.VisitJSON(generic); err != nil {
		return domain.WrapError(domain.ErrInvalidInput, "validate body", err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return domain.WrapError(domain.ErrInvalidInput, "decode body", err)
	}
	return nil
}

func (c *apiContract) serve(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(c.json)
}
