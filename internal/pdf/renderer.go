// Package pdf produces the printable letter document for a paid order.
package pdf

import (
	"context"
	"fmt"

	"letter-order-service/internal/model"
)

// Renderer writes the letter PDF and returns its storage path.
type Renderer struct {
	storageBase string
}

func NewRenderer(storageBase string) *Renderer {
	return &Renderer{storageBase: storageBase}
}

// Render produces the PDF for an order.
// TODO: call the real rendering engine once the print pipeline lands; for
// now only the storage path is reserved.
func (r *Renderer) Render(ctx context.Context, order *model.Order) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if order.Recipient == nil || order.LetterContent == "" {
		return "", fmt.Errorf("order %s has no letter content to render", order.ID)
	}
	return fmt.Sprintf("%s/orders/%s/generated/letter.pdf", r.storageBase, order.ID), nil
}
