package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"github.com/SAP-F-2025/college-portal-service/internal/models"
)

// Document is one record of a collection stored as jsonb. Position keeps the
// collection's insertion order.
type Document struct {
	Collection string         `gorm:"primaryKey;size:64"`
	Position   int            `gorm:"primaryKey;autoIncrement:false"`
	RecordID   string         `gorm:"column:record_id;size:255;index"`
	Data       datatypes.JSON `gorm:"type:jsonb;not null"`
	UpdatedAt  time.Time
}

func (Document) TableName() string {
	return "documents"
}

func toDocuments(collection string, recs []models.Record) ([]Document, error) {
	docs := make([]Document, 0, len(recs))
	for i, rec := range recs {
		data, err := json.Marshal(rec)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s record %q: %w", collection, rec.ID(), err)
		}
		docs = append(docs, Document{
			Collection: collection,
			Position:   i,
			RecordID:   rec.ID(),
			Data:       datatypes.JSON(data),
		})
	}
	return docs, nil
}

func fromDocuments(docs []Document) ([]models.Record, error) {
	recs := make([]models.Record, 0, len(docs))
	for _, doc := range docs {
		var rec models.Record
		if err := json.Unmarshal(doc.Data, &rec); err != nil {
			return nil, fmt.Errorf("failed to decode %s record %q: %w", doc.Collection, doc.RecordID, err)
		}
		if rec == nil {
			rec = models.Record{}
		}
		recs = append(recs, rec)
	}
	return recs, nil
}
