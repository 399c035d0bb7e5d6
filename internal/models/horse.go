package models

// Horse is the master row for a horse. Sire and dam-sire may be empty when
// the pedigree was never scraped; downstream factors treat empty as missing.
type Horse struct {
	ID        string `db:"id"`
	Name      string `db:"name"`
	Sex       string `db:"sex"`
	BirthYear int    `db:"birth_year"`
	Sire      string `db:"sire"`
	DamSire   string `db:"dam_sire"`
}
