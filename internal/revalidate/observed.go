package revalidate

import (
	"context"

	"github.com/geocoder89/sitecms/internal/observability"
)

// Observed counts results of one named sink.
type Observed struct {
	sink  string
	inner Revalidator
	prom  *observability.Prom
}

func NewObserved(sink string, inner Revalidator, prom *observability.Prom) *Observed {
	return &Observed{sink: sink, inner: inner, prom: prom}
}

func (o *Observed) Revalidate(ctx context.Context, sig Signal) error {
	err := o.inner.Revalidate(ctx, sig)
	o.prom.ObserveRevalidation(o.sink, err)
	return err
}
