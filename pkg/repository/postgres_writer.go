package repository

import (
	"log"

	"github.com/matst80/slask-fordon/pkg/types"
	gormclause "gorm.io/gorm/clause"
)

func (p *Postgres) Migrate() error {
	return p.db.AutoMigrate(&InventoryRecord{})
}

func recordFrom(item *types.Item) InventoryRecord {
	return InventoryRecord{
		Id:          item.Id,
		Domain:      string(item.Domain),
		Title:       item.Title,
		Description: item.Description,
		Vendor:      item.Vendor,
		Category:    item.Category,
		Chassis:     item.Chassis,
		Model:       item.Model,
		Year:        item.Year,
		Price:       item.Price,
		Status:      item.Status,
		Image:       item.Image,
	}
}

// Upsert writes items from the change feed, keeping the original created_at
// so newest ordering follows first arrival.
func (p *Postgres) Upsert(items ...types.Item) {
	if len(items) == 0 {
		return
	}
	records := make([]InventoryRecord, 0, len(items))
	for i := range items {
		if items[i].Id == "" {
			continue
		}
		if items[i].Domain == "" {
			items[i].Domain = types.DomainVehicles
		}
		if items[i].Status == "" {
			items[i].Status = types.StatusActive
		}
		records = append(records, recordFrom(&items[i]))
	}
	if len(records) == 0 {
		return
	}
	err := p.db.Clauses(gormclause.OnConflict{
		Columns: []gormclause.Column{{Name: "id"}},
		DoUpdates: gormclause.AssignmentColumns([]string{
			"domain", "title", "description", "vendor", "category",
			"chassis", "model", "year", "price", "status", "image",
		}),
	}).CreateInBatches(records, 200).Error
	if err != nil {
		log.Printf("failed to upsert %d items: %v", len(records), err)
	}
}

func (p *Postgres) Delete(ids ...string) {
	if len(ids) == 0 {
		return
	}
	if err := p.db.Where("id IN ?", ids).Delete(&InventoryRecord{}).Error; err != nil {
		log.Printf("failed to delete %d items: %v", len(ids), err)
	}
}
