package model

type ScanRequest struct {
	ImageBase64 string `json:"image_base64" binding:"required"`
}

type ExtractedMedication struct {
	Name      string `json:"name"`
	Dosage    string `json:"dosage"`
	Frequency string `json:"frequency"`
}

// Extraction is what OCR could read from a prescription image. An empty extraction
// with a warning means the caller should fall back to manual entry.
type Extraction struct {
	Medications       []ExtractedMedication `json:"medications"`
	PrescriptionTitle string                `json:"prescription_title"`
	AdditionalNotes   string                `json:"additional_notes"`
	Warning           string                `json:"warning,omitempty"`
}
