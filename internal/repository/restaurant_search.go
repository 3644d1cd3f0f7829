package repository

import (
	"context"
	"strings"

	"github.com/iliyamo/restaurant-reservation/internal/model"
)

// RestaurantSearchQuery holds the already validated predicates for a
// catalog search. Empty fields do not constrain the result.
type RestaurantSearchQuery struct {
	CuisineType string
	Location    string
	PriceRange  model.PriceRange
	Dietary     []string // every tag must be present
	RatingMin   *float64
	Atmosphere  string
	CuisineAny  []string // cuisine contains at least one of these
	OrderBy     string   // whitelist key, "-" prefix for descending
	Limit       int
}

// DefaultOrder is rating, highest first.
const DefaultOrder = "-rating"

var orderColumns = map[string]string{
	"rating":      "r.rating",
	"name":        "r.name",
	"price_range": "r.price_range",
	"capacity":    "r.capacity",
	"created_at":  "r.created_at",
	"id":          "r.id",
}

// OrderClause turns an order key such as "-rating" into an ORDER BY body.
// Ties always break on id so results are stable between calls.
func OrderClause(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		key = DefaultOrder
	}
	dir := "ASC"
	if strings.HasPrefix(key, "-") {
		dir = "DESC"
		key = key[1:]
	}
	col, ok := orderColumns[key]
	if !ok {
		return "", ErrInvalidOrder
	}
	if key == "id" {
		return col + " " + dir, nil
	}
	return col + " " + dir + ", r.id ASC", nil
}

// Search returns the restaurants matching every predicate in q.
func (r *RestaurantRepo) Search(ctx context.Context, q RestaurantSearchQuery) ([]model.Restaurant, error) {
	order, err := OrderClause(q.OrderBy)
	if err != nil {
		return nil, err
	}

	where := []string{}
	args := []any{}

	if q.CuisineType != "" {
		where = append(where, "LOWER(r.cuisine_type) LIKE ? ESCAPE '!'")
		args = append(args, containsPattern(q.CuisineType))
	}
	if q.Location != "" {
		where = append(where, "LOWER(r.address) LIKE ? ESCAPE '!'")
		args = append(args, containsPattern(q.Location))
	}
	if q.PriceRange != "" {
		where = append(where, "r.price_range = ?")
		args = append(args, string(q.PriceRange))
	}
	for _, tag := range q.Dietary {
		tag = model.NormalizeTag(tag)
		if tag == "" {
			continue
		}
		where = append(where,
			"EXISTS (SELECT 1 FROM restaurant_dietary_tags t WHERE t.restaurant_id = r.id AND t.tag = ?)")
		args = append(args, tag)
	}
	if q.RatingMin != nil {
		where = append(where, "r.rating >= ?")
		args = append(args, *q.RatingMin)
	}
	if q.Atmosphere != "" {
		where = append(where, "LOWER(r.atmosphere) LIKE ? ESCAPE '!'")
		args = append(args, containsPattern(q.Atmosphere))
	}
	if cuisines := nonEmpty(q.CuisineAny); len(cuisines) > 0 {
		ors := make([]string, 0, len(cuisines))
		for _, c := range cuisines {
			ors = append(ors, "LOWER(r.cuisine_type) LIKE ? ESCAPE '!'")
			args = append(args, containsPattern(c))
		}
		where = append(where, "("+strings.Join(ors, " OR ")+")")
	}

	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}

	query := "SELECT " + restaurantCols + " FROM restaurants r WHERE " + cond + " ORDER BY " + order
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Restaurant, 0)
	for rows.Next() {
		m, err := scanRestaurant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// release the connection before the tag query
	_ = rows.Close()
	if err := attachTags(ctx, r.db, out); err != nil {
		return nil, err
	}
	return out, nil
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
