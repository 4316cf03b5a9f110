package indextools

import (
	"context"
	"encoding/json"

	elastic "github.com/olivere/elastic/v7" // Elasticsearch client.
	"github.com/pkg/errors"                 // Error wrapping.
	"go.uber.org/zap"                       // Logging.
)

// CreateService creates an index, optionally deleting an existing
// index of the same name first.
type CreateService struct {
	tools      *IndexTools
	index      string
	bodyString string
	bodyJSON   interface{}
	mapping    string
	settings   string
	overwrite  bool
}

// Create returns a new CreateService for the named index.
func (t *IndexTools) Create(name string) *CreateService {
	return &CreateService{
		tools: t,
		index: name,
	}
}

// BodyString sets the full create-index body as a JSON string.
// Takes precedence over Mapping and Settings.
func (s *CreateService) BodyString(body string) *CreateService {
	s.bodyString = body
	return s
}

// BodyJson sets the full create-index body as a JSON-serializable
// value. Takes precedence over Mapping and Settings.
func (s *CreateService) BodyJson(body interface{}) *CreateService {
	s.bodyJSON = body
	return s
}

// Mapping sets the mappings section of the create-index body as a
// JSON string, e.g. the output of CloneMapping.
func (s *CreateService) Mapping(mapping string) *CreateService {
	s.mapping = mapping
	return s
}

// Settings sets the settings section of the create-index body as a
// JSON string, e.g. the output of CloneSettings.
func (s *CreateService) Settings(settings string) *CreateService {
	s.settings = settings
	return s
}

// Overwrite makes Do() delete an existing index of the same name
// before creating. Without it, Do() returns ErrIndexExists instead.
func (s *CreateService) Overwrite(overwrite bool) *CreateService {
	s.overwrite = overwrite
	return s
}

// Validate checks if the operation is valid.
func (s *CreateService) Validate() error {
	if err := validateIndexName(s.index); err != nil {
		return err
	}
	if (s.bodyString != "" || s.bodyJSON != nil) && (s.mapping != "" || s.settings != "") {
		return errors.New("use either a full body or mapping/settings, not both")
	}
	return nil
}

// Do executes the operation.
func (s *CreateService) Do(ctx context.Context) (*elastic.IndicesCreateResult, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	exists, err := s.tools.Exists(ctx, s.index)
	if err != nil {
		return nil, err
	}
	if exists {
		if !s.overwrite {
			return nil, errors.Wrap(ErrIndexExists, s.index)
		}
		if err := s.tools.Delete(ctx, s.index); err != nil {
			return nil, err
		}
	}

	svc := s.tools.client.CreateIndex(s.index)
	switch {
	case s.bodyString != "":
		svc = svc.BodyString(s.bodyString)
	case s.bodyJSON != nil:
		svc = svc.BodyJson(s.bodyJSON)
	case s.mapping != "" || s.settings != "":
		body := make(map[string]interface{}, 2)
		if s.settings != "" {
			body["settings"] = json.RawMessage(s.settings)
		}
		if s.mapping != "" {
			body["mappings"] = json.RawMessage(s.mapping)
		}
		svc = svc.BodyJson(body)
	}

	resp, err := svc.Do(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "error creating index")
	}
	s.tools.logger.Info("created index",
		zap.String("index", s.index),
		zap.Bool("overwrite", s.overwrite),
	)
	return resp, nil
}
