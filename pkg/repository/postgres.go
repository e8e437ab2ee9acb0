package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/matst80/slask-fordon/pkg/types"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InventoryRecord is the row shape of the inventory table.
type InventoryRecord struct {
	Id          string `gorm:"primaryKey"`
	Domain      string `gorm:"index"`
	Title       string
	Description string
	Vendor      string `gorm:"index"`
	Category    string `gorm:"index"`
	Chassis     string `gorm:"index"`
	Model       string `gorm:"index"`
	Year        int    `gorm:"index"`
	Price       int
	Status      string `gorm:"index"`
	Image       string
	CreatedAt   time.Time `gorm:"index"`
}

func (InventoryRecord) TableName() string {
	return "inventory_items"
}

func (r *InventoryRecord) Item() types.Item {
	return types.Item{
		Id:          r.Id,
		Domain:      types.Domain(r.Domain),
		Title:       r.Title,
		Description: r.Description,
		Vendor:      r.Vendor,
		Category:    r.Category,
		Chassis:     r.Chassis,
		Model:       r.Model,
		Year:        r.Year,
		Price:       r.Price,
		Status:      r.Status,
		Image:       r.Image,
	}
}

var columns = map[types.Field]string{
	types.FieldVendor:      "vendor",
	types.FieldCategory:    "category",
	types.FieldChassis:     "chassis",
	types.FieldModel:       "model",
	types.FieldYear:        "year",
	types.FieldPrice:       "price",
	types.FieldStatus:      "status",
	types.FieldTitle:       "title",
	types.FieldDescription: "description",
}

var orderClauses = map[types.SortOrder]string{
	types.SortNewest:    "created_at DESC, id",
	types.SortPriceAsc:  "price ASC, id",
	types.SortPriceDesc: "price DESC, id",
	types.SortYearAsc:   "year ASC, id",
	types.SortYearDesc:  "year DESC, id",
}

func column(field types.Field) (string, error) {
	c, ok := columns[field]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	return c, nil
}

func orderClause(order types.SortOrder) string {
	if c, ok := orderClauses[order]; ok {
		return c
	}
	return orderClauses[types.SortNewest]
}

type clause struct {
	sql  string
	args []any
}

// whereClauses translates constraints to parameterized conditions. Column
// names only ever come from the whitelist.
func whereClauses(q types.QueryDescriptor) ([]clause, error) {
	ret := make([]clause, 0, len(q.Constraints)+1)
	if q.Domain != "" && q.Domain != types.DomainAll {
		ret = append(ret, clause{sql: "domain = ?", args: []any{string(q.Domain)}})
	}
	for _, c := range q.Constraints {
		switch c.Op {
		case types.OpIn, types.OpEq:
			col, err := column(c.Field)
			if err != nil {
				return nil, err
			}
			if c.Op == types.OpEq && len(c.Values) == 1 {
				ret = append(ret, clause{sql: col + " = ?", args: []any{c.Values[0]}})
			} else {
				ret = append(ret, clause{sql: col + " IN ?", args: []any{c.Values}})
			}
		case types.OpRange:
			col, err := column(c.Field)
			if err != nil {
				return nil, err
			}
			if c.Min != nil {
				ret = append(ret, clause{sql: col + " >= ?", args: []any{*c.Min}})
			}
			if c.Max != nil {
				ret = append(ret, clause{sql: col + " <= ?", args: []any{*c.Max}})
			}
		case types.OpMatch:
			text := strings.TrimSpace(c.Text)
			if text == "" {
				continue
			}
			parts := make([]string, 0, len(c.Fields))
			args := make([]any, 0, len(c.Fields))
			pattern := "%" + escapeLike(text) + "%"
			for _, f := range c.Fields {
				col, err := column(f)
				if err != nil {
					return nil, err
				}
				parts = append(parts, col+" ILIKE ?")
				args = append(args, pattern)
			}
			if len(parts) > 0 {
				ret = append(ret, clause{sql: "(" + strings.Join(parts, " OR ") + ")", args: args})
			}
		default:
			return nil, fmt.Errorf("unsupported operator %q", c.Op)
		}
	}
	return ret, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// Postgres reads inventory from a relational content store through gorm.
type Postgres struct {
	db *gorm.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return &Postgres{db: db}, nil
}

func NewPostgresFromDB(db *gorm.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) scoped(ctx context.Context, q types.QueryDescriptor) (*gorm.DB, error) {
	clauses, err := whereClauses(q)
	if err != nil {
		return nil, err
	}
	tx := p.db.WithContext(ctx).Model(&InventoryRecord{})
	for _, c := range clauses {
		tx = tx.Where(c.sql, c.args...)
	}
	return tx, nil
}

func (p *Postgres) Query(ctx context.Context, q types.QueryDescriptor) (*types.ResultPage, error) {
	tx, err := p.scoped(ctx, q)
	if err != nil {
		return nil, err
	}
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count inventory: %w", err)
	}
	records := make([]InventoryRecord, 0, q.PageSize)
	find := tx.Order(orderClause(q.Sort))
	if q.PageSize > 0 {
		page := types.PageRequest{Page: q.Page, PageSize: q.PageSize}
		find = find.Offset(page.Offset()).Limit(q.PageSize)
	}
	if err := find.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("query inventory: %w", err)
	}
	items := make([]types.Item, len(records))
	for i := range records {
		items[i] = records[i].Item()
	}
	return &types.ResultPage{
		Items:    items,
		Total:    int(total),
		Page:     q.Page,
		PageSize: q.PageSize,
	}, nil
}

type valueCount struct {
	Value string
	Count int
}

func (p *Postgres) ValueCounts(ctx context.Context, q types.QueryDescriptor, field types.Field) (map[string]int, error) {
	col, err := column(field)
	if err != nil {
		return nil, err
	}
	tx, err := p.scoped(ctx, q)
	if err != nil {
		return nil, err
	}
	rows := make([]valueCount, 0)
	err = tx.Select(col + "::text AS value, COUNT(*) AS count").
		Where(col + " IS NOT NULL").
		Group(col).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count %s: %w", field, err)
	}
	ret := make(map[string]int, len(rows))
	for _, r := range rows {
		if r.Value == "" || r.Value == "0" {
			continue
		}
		ret[r.Value] = r.Count
	}
	return ret, nil
}
