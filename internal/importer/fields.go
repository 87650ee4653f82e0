// Package importer implements the bulk product import wizard.
//
// An import runs through five stages:
//
//	Upload -> Mapping -> Validation -> Importing -> Results
//
// Upload decodes a CSV or XLSX file into rows keyed by the file's own column
// headers and suggests a column mapping. Mapping lets the seller assign each
// source column to a target field. Validation partitions rows into valid and
// invalid, keeping each invalid row's reasons. Importing hands valid rows to a
// [Writer] one at a time while reporting progress, and Results holds the final
// counts and error report.
//
// A [Session] owns one attempt. Its state is replaced wholesale on every
// transition and exposed as a copied [State] snapshot.
package importer

// Target field keys.
const (
	FieldName             = "name"
	FieldSKU              = "sku"
	FieldPrice            = "price"
	FieldComparePrice     = "comparePrice"
	FieldStock            = "stock"
	FieldCategory         = "category"
	FieldDescription      = "description"
	FieldShortDescription = "shortDescription"
	FieldBrand            = "brand"
	FieldTags             = "tags"
	FieldWeight           = "weight"
	FieldImages           = "images"
)

// FieldDescriptor describes a target product attribute available for mapping.
type FieldDescriptor struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Required bool   `json:"required"`
}

// Fields is the fixed set of target fields, in template column order.
var Fields = []FieldDescriptor{
	{Key: FieldName, Label: "Product Name", Required: true},
	{Key: FieldSKU, Label: "SKU", Required: true},
	{Key: FieldPrice, Label: "Price", Required: true},
	{Key: FieldComparePrice, Label: "Compare Price"},
	{Key: FieldStock, Label: "Stock Quantity", Required: true},
	{Key: FieldCategory, Label: "Category"},
	{Key: FieldDescription, Label: "Description"},
	{Key: FieldShortDescription, Label: "Short Description"},
	{Key: FieldBrand, Label: "Brand"},
	{Key: FieldTags, Label: "Tags"},
	{Key: FieldWeight, Label: "Weight"},
	{Key: FieldImages, Label: "Images"},
}

// MappingRequired lists the fields that must be mapped before validation
// can run. Stock is required on the product form but not checked here.
var MappingRequired = []string{FieldName, FieldSKU, FieldPrice}

// LookupField returns the descriptor for key.
func LookupField(key string) (FieldDescriptor, bool) {
	for _, f := range Fields {
		if f.Key == key {
			return f, true
		}
	}
	return FieldDescriptor{}, false
}
