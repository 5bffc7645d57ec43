package dashboard

import (
	"context"
	"fmt"
	"log"
	"time"

	"merchantdash/internal/backend"
	"merchantdash/internal/location"
	"merchantdash/internal/rbac"
	"merchantdash/internal/session"
)

// Mutator is the write side of the merchant API.
type Mutator interface {
	RecordSale(ctx context.Context, userID string, req backend.SaleRequest, coord *location.Coordinate) error
	Restock(ctx context.Context, userID string, req backend.RestockRequest) error
	Retrain(ctx context.Context, userID string) (backend.RetrainResponse, error)
}

// Resyncer re-runs a full sync after a command succeeded.
type Resyncer interface {
	Sync(ctx context.Context, id session.Identity, coord *location.Coordinate) (Snapshot, error)
}

// Confirmer is the explicit user confirmation required before retraining.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

// Confirmed is a Confirmer with a fixed answer, e.g. from a request flag.
type Confirmed bool

func (c Confirmed) Confirm(context.Context, string) bool { return bool(c) }

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) bool

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) bool { return f(ctx, prompt) }

const retrainPrompt = "Retrain the forecasting model?"

type SaleInput struct {
	ProductID int64  `json:"product_id"`
	Quantity  int64  `json:"quantity"`
	Date      string `json:"date"`
}

type RestockInput struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

type RetrainResult struct {
	Accuracy  float64 `json:"accuracy"`
	TotalData int     `json:"totalData"`
}

type Commands struct {
	mutator Mutator
	syncer  Resyncer
	metrics *Metrics
	now     func() time.Time
}

func NewCommands(m Mutator, syncer Resyncer, metrics *Metrics) *Commands {
	return &Commands{mutator: m, syncer: syncer, metrics: metrics, now: time.Now}
}

// RecordSale writes a sale and returns once the follow-up sync finished.
// An empty date means today.
func (c *Commands) RecordSale(ctx context.Context, id session.Identity, coord *location.Coordinate, in SaleInput) (err error) {
	defer func() { c.metrics.command("record_sale", err) }()

	if !rbac.Can(id.Role, rbac.ActionRecordSale) {
		return ErrForbidden
	}
	if err := validateLine(in.ProductID, in.Quantity); err != nil {
		return err
	}
	date := in.Date
	if date == "" {
		date = c.now().Format(time.DateOnly)
	} else if _, perr := time.Parse(time.DateOnly, date); perr != nil {
		return &ValidationError{Field: "date", Message: "date must be YYYY-MM-DD"}
	}

	req := backend.SaleRequest{ProductID: in.ProductID, Quantity: in.Quantity, Date: date}
	if err := c.mutator.RecordSale(ctx, id.UserID, req, coord); err != nil {
		return commandError("record_sale", err)
	}
	return c.resync(ctx, "record_sale", id, coord)
}

// Restock adds stock. The new figure only ever comes from the follow-up sync.
func (c *Commands) Restock(ctx context.Context, id session.Identity, coord *location.Coordinate, in RestockInput) (err error) {
	defer func() { c.metrics.command("restock", err) }()

	if !rbac.Can(id.Role, rbac.ActionRestock) {
		return ErrForbidden
	}
	if err := validateLine(in.ProductID, in.Quantity); err != nil {
		return err
	}

	req := backend.RestockRequest{ProductID: in.ProductID, Quantity: in.Quantity}
	if err := c.mutator.Restock(ctx, id.UserID, req); err != nil {
		return commandError("restock", err)
	}
	return c.resync(ctx, "restock", id, coord)
}

// Retrain asks the backend to recompute the model. Nothing is sent unless
// confirm agrees.
func (c *Commands) Retrain(ctx context.Context, id session.Identity, coord *location.Coordinate, confirm Confirmer) (res RetrainResult, err error) {
	defer func() { c.metrics.command("retrain", err) }()

	if !rbac.Can(id.Role, rbac.ActionRetrain) {
		return RetrainResult{}, ErrForbidden
	}
	if confirm == nil || !confirm.Confirm(ctx, retrainPrompt) {
		return RetrainResult{}, ErrNotConfirmed
	}

	resp, err := c.mutator.Retrain(ctx, id.UserID)
	if err != nil {
		return RetrainResult{}, commandError("retrain", err)
	}
	if resp.Status == "failed" {
		reason := resp.Message
		if reason == "" {
			reason = genericFailure
		}
		return RetrainResult{}, &CommandError{Command: "retrain", Reason: reason}
	}

	res = RetrainResult{TotalData: resp.TotalData}
	if resp.Accuracy != nil {
		res.Accuracy = resp.Accuracy.R2Score
	}
	log.Printf("commands: retrain for %s done, r2=%.3f rows=%d", id.UserID, res.Accuracy, res.TotalData)
	if err := c.resync(ctx, "retrain", id, coord); err != nil {
		return res, err
	}
	return res, nil
}

func (c *Commands) resync(ctx context.Context, command string, id session.Identity, coord *location.Coordinate) error {
	if _, err := c.syncer.Sync(ctx, id, coord); err != nil {
		return fmt.Errorf("%s applied, refresh failed: %w", command, err)
	}
	return nil
}

func validateLine(productID, quantity int64) error {
	if productID <= 0 {
		return &ValidationError{Field: "product_id", Message: "choose a product"}
	}
	if quantity <= 0 {
		return &ValidationError{Field: "quantity", Message: "quantity must be a positive whole number"}
	}
	return nil
}
