// Package stream provides DynamoDB Streams handlers that keep association
// rows consistent with the entities they belong to.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"github.com/jacentio/grid/grid"
	"github.com/jacentio/grid/internal/keycodec"
)

// Reserved attributes written by the DynamoDB dialect.
const (
	attrID     = "_id"
	attrRowKey = "_rk"
)

// Handler removes the associations of entities deleted from a grid table.
type Handler struct {
	dialect     grid.Dialect
	registry    *Registry
	tablePrefix string
	logger      *slog.Logger
}

// NewHandler creates a new stream handler. tablePrefix is stripped from
// DynamoDB table names to recover grid table names; it must match the
// dialect's prefix.
func NewHandler(d grid.Dialect, registry *Registry, tablePrefix string, logger *slog.Logger) *Handler {
	if registry == nil {
		registry = NewRegistry()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		dialect:     d,
		registry:    registry,
		tablePrefix: tablePrefix,
		logger:      logger,
	}
}

// HandleRemove processes DynamoDB stream events and removes the associations
// of every removed entity. It is designed to be used as an AWS Lambda
// handler; a returned error makes Lambda retry the batch, and removal is
// idempotent.
func (h *Handler) HandleRemove(ctx context.Context, event events.DynamoDBEvent) error {
	for _, record := range event.Records {
		if err := h.processRecord(ctx, record); err != nil {
			h.logger.Error("failed to process record",
				"eventID", record.EventID,
				"error", err,
			)
			return err
		}
	}
	return nil
}

func (h *Handler) processRecord(ctx context.Context, record events.DynamoDBEventRecord) error {
	if record.EventName != string(events.DynamoDBOperationTypeRemove) {
		return nil
	}

	table, ok := h.gridTable(record.EventSourceArn)
	if !ok || !h.registry.HasRelationships(table) {
		return nil
	}

	id, ok, err := entityID(record.Change)
	if err != nil {
		return fmt.Errorf("entity id in %s: %w", table, err)
	}
	if !ok {
		h.logger.Debug("skipping association row", "table", table, "eventID", record.EventID)
		return nil
	}

	relationships := h.registry.RelationshipsOf(table)
	h.logger.Info("removing associations",
		"table", table,
		"id", id,
		"associations", len(relationships),
	)

	failed := 0
	for _, rel := range relationships {
		key := rel.AssociationKey(id)
		if err := h.dialect.RemoveAssociation(ctx, key); err != nil {
			h.logger.Warn("failed to remove association",
				"association", key.String(),
				"error", err,
			)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("remove associations of %s %v: %d of %d failed", table, id, failed, len(relationships))
	}
	return nil
}

// gridTable extracts the table name from a stream ARN of the form
// arn:aws:dynamodb:<region>:<account>:table/<name>/stream/<label> and strips
// the prefix. ok is false for tables outside the prefix.
func (h *Handler) gridTable(arn string) (string, bool) {
	_, rest, found := strings.Cut(arn, ":table/")
	if !found {
		return "", false
	}
	name, _, _ := strings.Cut(rest, "/stream/")
	if !strings.HasPrefix(name, h.tablePrefix) {
		return "", false
	}
	table := strings.TrimPrefix(name, h.tablePrefix)
	return table, table != ""
}

// entityID recovers the entity id from a stream record. The _id key carries
// the canonical id encoding and is present in every stream view; the "id"
// column of the old image is used when it is missing. ok is false for
// association row items, which carry _rk or an _id that is not a single
// JSON value.
func entityID(change events.DynamoDBStreamRecord) (id any, ok bool, err error) {
	if _, isRow := change.OldImage[attrRowKey]; isRow {
		return nil, false, nil
	}
	if ref := getStringAttr(change.Keys, attrID); ref != "" {
		dec := json.NewDecoder(strings.NewReader(ref))
		dec.UseNumber()
		if err := dec.Decode(&id); err != nil {
			return nil, false, fmt.Errorf("decode %s %q: %w", attrID, ref, err)
		}
		if _, err := dec.Token(); !errors.Is(err, io.EOF) {
			return nil, false, nil
		}
		return keycodec.Normalize(id), true, nil
	}
	if v, found := change.OldImage[grid.IDColumn]; found {
		id, err = attributeValue(v)
		return id, err == nil, err
	}
	return nil, false, fmt.Errorf("record has neither %s nor %s", attrID, grid.IDColumn)
}
