package ingest

import (
	"strings"
	"unicode"

	"articleregistry/backend/internal/domain"
)

// headerKeys maps slugified export headers to record field keys. Anything not
// listed is kept under its own slug.
var headerKeys = map[string]string{
	"articlecode":         domain.FieldArticleCode,
	"colorcode":           domain.FieldColorCode,
	"colourcode":          domain.FieldColorCode,
	"treatmentname":       domain.FieldTreatmentName,
	"treatment":           domain.FieldTreatmentName,
	"articlename":         domain.FieldArticleName,
	"colorname":           domain.FieldColorName,
	"colourname":          domain.FieldColorName,
	"supplier":            domain.FieldSupplier,
	"suppliername":        domain.FieldSupplier,
	"suppliercode":        domain.FieldSupplierCode,
	"section":             domain.FieldSection,
	"season":              domain.FieldSeason,
	"suppartcode":         domain.FieldSuppArtCode,
	"supplierarticlecode": domain.FieldSuppArtCode,
	"composition":         domain.FieldComposition,
	"weave":               domain.FieldWeave,
	"stretch":             domain.FieldStretch,
	"construction":        domain.FieldConstruction,
	"weightgsm":           domain.FieldWeightGSM,
	"weight":              domain.FieldWeightGSM,
	"widthcm":             domain.FieldWidthCM,
	"width":               domain.FieldWidthCM,
	"dyetype":             domain.FieldDyeType,
	"carelabel":           domain.FieldCareLabel,
	"barcodeqr":           domain.FieldBarcodeQR,
	"barcode":             domain.FieldBarcodeQR,
	"basepriceeur":        domain.FieldBasePriceEUR,
	"baseprice":           domain.FieldBasePriceEUR,
}

// FieldKey translates an export header into the record field key.
func FieldKey(header string) string {
	slug := Slugify(header)
	if key, ok := headerKeys[slug]; ok {
		return key
	}
	return slug
}

// Slugify drops everything that is not a letter or digit and lowercases the rest.
func Slugify(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}
