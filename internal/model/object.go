package model

import "time"

// MediaKind selects which list an uploaded file is attached to.
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaAudio MediaKind = "audio"
)

// ObjectFields are the user-editable descriptive fields of a record. The
// JSON names are the ones records have always been stored and exported
// under.
type ObjectFields struct {
	ObjectID                string `json:"object_id"`
	BritishMuseumRecord     string `json:"british_museum_record"`
	ObjectTitle             string `json:"object_title"`
	ObjectType              string `json:"object_type"`
	MuseumNumber            string `json:"museum_number"`
	Title                   string `json:"title"`
	Description             string `json:"description"`
	ProductionEthnicGroup   string `json:"production_ethnic_group"`
	CulturePeriod           string `json:"culture_period"`
	ProducerName            string `json:"producer_name"`
	SchoolStyle             string `json:"school_style"`
	ProductionDate          string `json:"production_date"`
	ProductionPlace         string `json:"production_place"`
	ExcavatorFieldCollector string `json:"excavator_field_collector"`
	Findspot                string `json:"findspot"`
	Materials               string `json:"materials"`
	Ware                    string `json:"ware"`
	Technique               string `json:"technique"`
	Dimensions              string `json:"dimensions_h_w_d"`
	Inscriptions            string `json:"inscriptions"`
	AcquisitionName         string `json:"acquisition_name"`
	PreviousOwner           string `json:"previous_owner"`
	AcquisitionDate         string `json:"acquisition_date"`
	AcquisitionNotes        string `json:"acquisition_notes"`
	CuratorComment          string `json:"curator_comment"`
	BibliographicReferences string `json:"bibliographic_references"`
	ObjectLocation          string `json:"object_location"`
	ExhibitionHistory       string `json:"exhibition_history"`
	Condition               string `json:"condition"`
	Subjects                string `json:"subjects"`
	Notes                   string `json:"notes"`
}

// Column is one descriptive field, addressed by its JSON name. Long marks
// free-text fields that get the larger length limit.
type Column struct {
	Name  string
	Value *string
	Long  bool
}

// Columns lists the fields of f in export order.
func (f *ObjectFields) Columns() []Column {
	return []Column{
		{Name: "object_id", Value: &f.ObjectID},
		{Name: "british_museum_record", Value: &f.BritishMuseumRecord},
		{Name: "object_title", Value: &f.ObjectTitle},
		{Name: "object_type", Value: &f.ObjectType},
		{Name: "museum_number", Value: &f.MuseumNumber},
		{Name: "title", Value: &f.Title},
		{Name: "description", Value: &f.Description, Long: true},
		{Name: "production_ethnic_group", Value: &f.ProductionEthnicGroup},
		{Name: "culture_period", Value: &f.CulturePeriod},
		{Name: "producer_name", Value: &f.ProducerName},
		{Name: "school_style", Value: &f.SchoolStyle},
		{Name: "production_date", Value: &f.ProductionDate},
		{Name: "production_place", Value: &f.ProductionPlace},
		{Name: "excavator_field_collector", Value: &f.ExcavatorFieldCollector},
		{Name: "findspot", Value: &f.Findspot},
		{Name: "materials", Value: &f.Materials},
		{Name: "ware", Value: &f.Ware},
		{Name: "technique", Value: &f.Technique},
		{Name: "dimensions_h_w_d", Value: &f.Dimensions},
		{Name: "inscriptions", Value: &f.Inscriptions, Long: true},
		{Name: "acquisition_name", Value: &f.AcquisitionName},
		{Name: "previous_owner", Value: &f.PreviousOwner},
		{Name: "acquisition_date", Value: &f.AcquisitionDate},
		{Name: "acquisition_notes", Value: &f.AcquisitionNotes, Long: true},
		{Name: "curator_comment", Value: &f.CuratorComment, Long: true},
		{Name: "bibliographic_references", Value: &f.BibliographicReferences, Long: true},
		{Name: "object_location", Value: &f.ObjectLocation},
		{Name: "exhibition_history", Value: &f.ExhibitionHistory, Long: true},
		{Name: "condition", Value: &f.Condition},
		{Name: "subjects", Value: &f.Subjects},
		{Name: "notes", Value: &f.Notes, Long: true},
	}
}

// CatalogObject is one cataloged artifact.
//
// ID is the storage key assigned by the server; ObjectID is the
// human-readable catalog number (e.g. "OBJ-001") entered by the user and
// fixed once the record exists.
type CatalogObject struct {
	ID string `json:"id"`
	ObjectFields
	Images         []string  `json:"object_images"`
	Audio          []string  `json:"object_audio"`
	CreatedByUID   string    `json:"createdByUid"`
	CreatedByEmail string    `json:"createdByEmail"`
	CreationDate   time.Time `json:"creationDate"`
	ModifiedDate   time.Time `json:"modifiedDate"`
}

// ObjectFilter narrows a catalog search. Empty fields match everything.
type ObjectFilter struct {
	ObjectTitle  string
	ObjectType   string
	ObjectID     string
	Title        string
	ProducerName string
}
