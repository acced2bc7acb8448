package types

import (
	"strings"
	"time"
)

// VacantSeat is recorded when a district has no sitting representative.
const VacantSeat = "Vacant"

// Signature is one confirmed pledge. The same struct backs the MySQL
// backup table and the row written to the primary sheet.
type Signature struct {
	ID        uint64    `gorm:"primaryKey" json:"-"`
	Timestamp time.Time `gorm:"not null" json:"timestamp"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Email     string    `gorm:"size:255;not null;index" json:"email"`
	District  string    `gorm:"size:16;not null" json:"district"`
	Rep       string    `gorm:"size:255" json:"representative"`
}

// Row renders the signature in sheet column order:
// Timestamp, Name, Email, District, Rep.
func (s Signature) Row() []string {
	return []string{
		s.Timestamp.Format(time.RFC3339),
		s.Name,
		s.Email,
		s.District,
		s.Rep,
	}
}

// NormalizeEmail trims surrounding whitespace and lower-cases. The
// normalized form is the sole deduplication key among signatures.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
