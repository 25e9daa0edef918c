package release

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lngkit/sparkrelease/pkg/logger"
)

const metadataHint = "metadata file can't be read: run this from a directory containing a metadata file"

// loadMetadata reads the project descriptor and records its identifier.
func (r *Release) loadMetadata(ctx context.Context, rc *Context) error {
	path := r.path(r.cfg.MetadataFile)

	data, err := r.sys.ReadFile(path)
	if err != nil {
		return &ConfigError{Hint: metadataHint, Err: err}
	}

	var meta map[string]interface{}
	if err := json.Unmarshal(data, &meta); err != nil {
		return &ConfigError{Hint: fmt.Sprintf("%s is not valid JSON", r.cfg.MetadataFile), Err: err}
	}

	id, _ := meta["identifier"].(string)
	if id == "" {
		return &ConfigError{Hint: fmt.Sprintf("can't find identifier in %s file", r.cfg.MetadataFile)}
	}

	rc.Metadata = meta
	rc.Identifier = id

	r.stageLogger(ctx).Info("Loaded metadata", logger.WithField("identifier", id))
	return nil
}
