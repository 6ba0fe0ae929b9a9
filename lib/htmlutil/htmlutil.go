package htmlutil

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("mycar.lib.htmlutil")

// AttrValues parses an html fragment and returns the `attr` value of
// every element matching selector. Entities in the values are decoded.
func AttrValues(ctx context.Context, fragment, selector, attr string) ([]string, error) {
	_, span := tracer.Start(ctx, "AttrValues")
	defer span.End()
	span.SetAttributes(attribute.String("selector", selector))

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse html")
		return nil, err
	}

	var values []string
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		value, ok := s.Attr(attr)
		if ok {
			values = append(values, value)
		}
	})

	span.SetAttributes(attribute.Int("matches", len(values)))
	return values, nil
}
