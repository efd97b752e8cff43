package handlers

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/auc-api/internal/store"
)

const maxDocumentBytes = 1 << 20

// bindDocument reads the request body as a schema-less document. A missing
// body is the empty document. Operator keys ("$...") are refused at any
// depth so a body used as a filter can only match on equal fields.
func bindDocument(c *gin.Context) (store.Document, error) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxDocumentBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", errBadRequest, err)
	}
	if len(raw) > maxDocumentBytes {
		return nil, fmt.Errorf("%w: body too large", errBadRequest)
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return store.Document{}, nil
	}

	// Relaxed Extended JSON keeps integers as int32/int64 so the body is
	// stored as sent.
	var doc bson.M
	if err := bson.UnmarshalExtJSON(raw, false, &doc); err != nil {
		return nil, fmt.Errorf("%w: body must be a JSON object", errBadRequest)
	}
	if doc == nil {
		return store.Document{}, nil
	}
	if key, found := findOperator("", doc); found {
		return nil, fmt.Errorf("%w: operator key %q is not allowed", errBadRequest, key)
	}
	return doc, nil
}

// findOperator reports the first "$" key, or the field holding a value the
// server would evaluate rather than compare (regex, JavaScript).
func findOperator(field string, v any) (string, bool) {
	switch t := v.(type) {
	case bson.M:
		for k, val := range t {
			if strings.HasPrefix(k, "$") {
				return k, true
			}
			if key, found := findOperator(k, val); found {
				return key, true
			}
		}
	case bson.D:
		for _, e := range t {
			if strings.HasPrefix(e.Key, "$") {
				return e.Key, true
			}
			if key, found := findOperator(e.Key, e.Value); found {
				return key, true
			}
		}
	case bson.A:
		for _, val := range t {
			if key, found := findOperator(field, val); found {
				return key, true
			}
		}
	case primitive.Regex, primitive.JavaScript, primitive.CodeWithScope:
		return field, true
	}
	return "", false
}
