package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/landrecords-in/jamabandi/internal/models"
	apperrors "github.com/landrecords-in/jamabandi/pkg/errors"
)

// RecordService owns persistence of land records. Lookups are exact matches
// on the composite key; Save is an upsert keyed on the same four columns.
type RecordService struct {
	db *gorm.DB
}

// NewRecordService constructs a record service once a database handle is supplied.
func NewRecordService(db *gorm.DB) (*RecordService, error) {
	if db == nil {
		return nil, errors.New("record service: db is required")
	}
	return &RecordService{db: db}, nil
}

func ensuredContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

func validateKey(key models.RecordKey) error {
	if key.DistrictName == "" || key.TehsilName == "" || key.VillageName == "" || key.KhasraNo == "" {
		return errors.New("record service: all four key fields are required")
	}
	return nil
}

// FindByKey returns the record stored for the composite key, or
// apperrors.ErrRecordNotFound when no row matches. Key values are matched
// verbatim; no normalisation is applied.
func (s *RecordService) FindByKey(ctx context.Context, key models.RecordKey) (*models.LandRecord, error) {
	if s == nil {
		return nil, errors.New("record service: service not initialised")
	}
	ctx = ensuredContext(ctx)

	if err := validateKey(key); err != nil {
		return nil, err
	}

	var record models.LandRecord
	err := s.db.WithContext(ctx).
		Where("district_name = ? AND tehsil_name = ? AND village_name = ? AND khasra_no = ?",
			key.DistrictName, key.TehsilName, key.VillageName, key.KhasraNo).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrRecordNotFound
		}
		return nil, apperrors.StoreError("finding land record", err)
	}

	return &record, nil
}

// Save upserts a record by its composite key: when a row already exists its
// payload columns are overwritten in place, otherwise a new row is inserted.
func (s *RecordService) Save(ctx context.Context, record *models.LandRecord) (*models.LandRecord, error) {
	if s == nil {
		return nil, errors.New("record service: service not initialised")
	}
	if record == nil {
		return nil, errors.New("record service: record is required")
	}
	ctx = ensuredContext(ctx)

	if err := validateKey(record.Key()); err != nil {
		return nil, err
	}

	var saved models.LandRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.LandRecord
		err := tx.Where("district_name = ? AND tehsil_name = ? AND village_name = ? AND khasra_no = ?",
			record.DistrictName, record.TehsilName, record.VillageName, record.KhasraNo).
			First(&existing).Error

		switch {
		case err == nil:
			applyPayload(&existing, record)
			if err := tx.Save(&existing).Error; err != nil {
				return err
			}
			saved = existing
			return nil
		case errors.Is(err, gorm.ErrRecordNotFound):
			fresh := *record
			fresh.ID = 0
			if err := tx.Create(&fresh).Error; err != nil {
				return err
			}
			saved = fresh
			return nil
		default:
			return err
		}
	})
	if err != nil {
		return nil, apperrors.StoreError("saving land record", err)
	}

	return &saved, nil
}

// GetByID reads a single record by its row identifier.
func (s *RecordService) GetByID(ctx context.Context, id uint) (*models.LandRecord, error) {
	if s == nil {
		return nil, errors.New("record service: service not initialised")
	}
	ctx = ensuredContext(ctx)

	var record models.LandRecord
	if err := s.db.WithContext(ctx).First(&record, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrRecordNotFound
		}
		return nil, apperrors.StoreError("reading land record", err)
	}

	return &record, nil
}

// SearchOptions filters records by any subset of the administrative names.
type SearchOptions struct {
	DistrictName string
	TehsilName   string
	VillageName  string
}

// Search lists records matching the supplied criteria, ordered by key.
func (s *RecordService) Search(ctx context.Context, opts SearchOptions) ([]models.LandRecord, error) {
	if s == nil {
		return nil, errors.New("record service: service not initialised")
	}
	ctx = ensuredContext(ctx)

	q := s.db.WithContext(ctx).Model(&models.LandRecord{})
	if district := strings.TrimSpace(opts.DistrictName); district != "" {
		q = q.Where("district_name = ?", district)
	}
	if tehsil := strings.TrimSpace(opts.TehsilName); tehsil != "" {
		q = q.Where("tehsil_name = ?", tehsil)
	}
	if village := strings.TrimSpace(opts.VillageName); village != "" {
		q = q.Where("village_name = ?", village)
	}

	var records []models.LandRecord
	if err := q.Order("district_name, tehsil_name, village_name, khasra_no").Find(&records).Error; err != nil {
		return nil, apperrors.StoreError("searching land records", err)
	}

	return records, nil
}

func applyPayload(dst, src *models.LandRecord) {
	dst.DistrictCode = src.DistrictCode
	dst.TehsilCode = src.TehsilCode
	dst.VillageCode = src.VillageCode
	dst.JamabandiYear = src.JamabandiYear
	dst.KhewatNo = src.KhewatNo
	dst.KhatoniNo = src.KhatoniNo
	dst.KhasraCode = src.KhasraCode
	dst.NakalVillage = src.NakalVillage
	dst.NakalHadbast = src.NakalHadbast
	dst.NakalTehsil = src.NakalTehsil
	dst.NakalDistrict = src.NakalDistrict
	dst.NakalYear = src.NakalYear
}
