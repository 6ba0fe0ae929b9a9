package resolve

import (
	"strings"

	"mycar-backend/lib/textutil"
)

// BodyStyles are matched against model group names in this order.
var BodyStyles = []string{"Sedan", "Coupe", "Sport Utility"}

// SplitModel finds the first body style (by list order) contained in name,
// the model is whatever precedes it. When nothing matches the name is
// returned as is with an empty body style.
func SplitModel(name string, bodyStyles []string) (model, bodyStyle string) {
	for _, style := range bodyStyles {
		if style == "" || !strings.Contains(name, style) {
			continue
		}
		return strings.TrimSpace(textutil.LeftOf(name, style)), style
	}
	return name, ""
}

// NormalizeTrim shortens " w/Leather" to "-L" and keeps only the first
// word.
func NormalizeTrim(trim string) string {
	trim = strings.ReplaceAll(trim, " w/Leather", "-L")
	return textutil.LeftOf(trim, " ")
}

// Primary holds the fields of the vendor's base vehicle record.
type Primary struct {
	ModelId   string
	Model     string
	BodyStyle string
	Year      string
	Trim      string
	ColorName string
	ColorCode string
}

func ResolvePrimary(payload string) Primary {
	model, bodyStyle := SplitModel(textutil.JsonField(payload, "modelGroupName"), BodyStyles)
	return Primary{
		ModelId:   textutil.JsonField(payload, "modelId"),
		Model:     model,
		BodyStyle: bodyStyle,
		Year:      textutil.JsonField(payload, "year"),
		Trim:      NormalizeTrim(textutil.JsonField(payload, "trim")),
		ColorName: textutil.JsonField(payload, `color":{"name`),
		ColorCode: textutil.JsonField(payload, "mfg_color_cd"),
	}
}

// Missing lists the fields that came back empty.
func (p Primary) Missing() []string {
	return missing(
		[2]string{"modelId", p.ModelId},
		[2]string{"model", p.Model},
		[2]string{"year", p.Year},
		[2]string{"trim", p.Trim},
		[2]string{"colorName", p.ColorName},
		[2]string{"colorCode", p.ColorCode},
	)
}
