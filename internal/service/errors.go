package service

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Harshitk-cp/actgraph/internal/domain"
)

// classify maps platform rejections carried by a TransportError to the
// domain error classes. The classified error replaces the transport error so
// the classes stay disjoint. Other errors are returned unchanged.
func classify(err error, resource, id string) error {
	var te *domain.TransportError
	if !errors.As(err, &te) {
		return err
	}

	switch te.Status {
	case http.StatusNotFound:
		return &domain.NotFoundError{Resource: resource, ID: id, Body: te.Body}
	case http.StatusConflict, http.StatusPreconditionFailed:
		return &domain.ConflictError{Status: te.Status, Messages: messages(te.Body), Body: te.Body}
	}
	return err
}

func messages(body []byte) []domain.Message {
	var env domain.Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil
	}
	return env.Messages
}
