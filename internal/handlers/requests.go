package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"mixsafe-gateway/internal/chem"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Product is one consumer product and the CAS numbers of its ingredients.
type Product struct {
	ProductName string   `json:"productName" validate:"max=200"`
	CASNumbers  []string `json:"casNumbers" validate:"required,min=1,max=50,dive,required,max=100"`
}

// AnalysisRequest is shared by the analyze endpoints. Identifiers come from
// products, substances or both.
type AnalysisRequest struct {
	UseAI      *bool     `json:"useAi"`
	UseAISnake *bool     `json:"use_ai"`
	Products   []Product `json:"products" validate:"max=50,dive"`
	Substances []string  `json:"substances" validate:"max=100,dive,required,max=100"`
}

// Identifiers flattens product CAS numbers (in product order) followed by
// bare substances.
func (r AnalysisRequest) Identifiers() []string {
	var ids []string
	for _, p := range r.Products {
		ids = append(ids, p.CASNumbers...)
	}
	return append(ids, r.Substances...)
}

// AI reports the requested AI flag. It defaults to true.
func (r AnalysisRequest) AI() bool {
	switch {
	case r.UseAI != nil:
		return *r.UseAI
	case r.UseAISnake != nil:
		return *r.UseAISnake
	default:
		return true
	}
}

type setURLRequest struct {
	URL string `json:"url" validate:"required,http_url"`
}

type recordsRequest struct {
	Records []chem.Record `validate:"required,min=1,max=500,dive"`
}

// decodeJSON reads one JSON object from the body and validates it.
func decodeJSON(r *http.Request, v interface{}) error {
	if err := readJSON(r, v); err != nil {
		return err
	}
	return validateStruct(v)
}

func readJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return chem.E("decode", chem.KindInvalidInput, fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit), err)
		case errors.Is(err, io.EOF):
			return chem.E("decode", chem.KindInvalidInput, "request body is empty", err)
		default:
			return chem.E("decode", chem.KindInvalidInput, "invalid JSON: "+err.Error(), err)
		}
	}
	return nil
}

func validateStruct(v interface{}) error {
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
			}
			return chem.E("validate", chem.KindInvalidInput, strings.Join(msgs, "; "), err)
		}
		return chem.E("validate", chem.KindInvalidInput, err.Error(), err)
	}
	return nil
}
