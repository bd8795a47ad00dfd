package models

import (
	"time"
)

// RecordKey is the composite natural key identifying a single land record.
// Values are caller-supplied free text and may contain Devanagari script.
type RecordKey struct {
	DistrictName string `json:"district_name"`
	TehsilName   string `json:"tehsil_name"`
	VillageName  string `json:"village_name"`
	KhasraNo     string `json:"khasra_no"`
}

// LandRecord represents one nakal resolved from the jamabandi portal.
// The four *Name/KhasraNo columns form the natural key; the remaining
// columns are the payload extracted from the portal.
type LandRecord struct {
	ID uint `gorm:"primaryKey;autoIncrement" json:"id"`

	DistrictName string `gorm:"size:255;not null;uniqueIndex:idx_land_records_key;index:idx_district_tehsil_village" json:"district_name"`
	TehsilName   string `gorm:"size:255;not null;uniqueIndex:idx_land_records_key;index:idx_district_tehsil_village" json:"tehsil_name"`
	VillageName  string `gorm:"size:255;not null;uniqueIndex:idx_land_records_key;index:idx_district_tehsil_village" json:"village_name"`
	KhasraNo     string `gorm:"size:100;not null;uniqueIndex:idx_land_records_key" json:"khasra_no"`

	DistrictCode  string `gorm:"size:50;not null" json:"district_code"`
	TehsilCode    string `gorm:"size:50;not null" json:"tehsil_code"`
	VillageCode   string `gorm:"size:50;not null" json:"village_code"`
	JamabandiYear string `gorm:"size:50;not null" json:"jamabandi_year"`
	KhewatNo      string `gorm:"size:50;not null" json:"khewat_no"`
	KhatoniNo     string `gorm:"size:50;not null" json:"khatoni_no"`
	KhasraCode    string `gorm:"size:50;not null" json:"khasra_code"`

	// Fields echoed back by the nakal document itself.
	NakalVillage  string `gorm:"size:255;not null" json:"nakal_village"`
	NakalHadbast  string `gorm:"size:50;not null" json:"nakal_hadbast"`
	NakalTehsil   string `gorm:"size:255;not null" json:"nakal_tehsil"`
	NakalDistrict string `gorm:"size:255;not null" json:"nakal_district"`
	NakalYear     string `gorm:"size:50;not null" json:"nakal_year"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName keeps the table name aligned with the existing database file.
func (LandRecord) TableName() string {
	return "land_records"
}

// Key returns the composite key stored on the record.
func (r *LandRecord) Key() RecordKey {
	return RecordKey{
		DistrictName: r.DistrictName,
		TehsilName:   r.TehsilName,
		VillageName:  r.VillageName,
		KhasraNo:     r.KhasraNo,
	}
}
