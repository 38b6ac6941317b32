package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/kangminhyuk1111/hoops/internal/geo"
	"github.com/kangminhyuk1111/hoops/internal/model"
)

const (
	geoKey          = "matches:geo"
	geoMemberPrefix = "match:"
)

// GeoIndex keeps active matches in a Redis GEO set so nearby searches can
// skip the table scan.  MySQL stays the source of truth; the index only
// narrows candidates and may briefly hold stale members.
type GeoIndex struct {
	rdb *redis.Client
	key string
}

func NewGeoIndex(rdb *redis.Client) *GeoIndex {
	return &GeoIndex{rdb: rdb, key: geoKey}
}

func geoMember(id uint64) string { return geoMemberPrefix + strconv.FormatUint(id, 10) }

// Put adds or moves a match.
func (g *GeoIndex) Put(ctx context.Context, m model.Match) error {
	return g.rdb.GeoAdd(ctx, g.key, &redis.GeoLocation{
		Name:      geoMember(m.ID),
		Longitude: m.Longitude,
		Latitude:  m.Latitude,
	}).Err()
}

func (g *GeoIndex) Remove(ctx context.Context, id uint64) error {
	return g.rdb.ZRem(ctx, g.key, geoMember(id)).Err()
}

// Nearby returns ids of indexed matches within km of origin, nearest first.
func (g *GeoIndex) Nearby(ctx context.Context, origin geo.Point, km float64) ([]uint64, error) {
	members, err := g.rdb.GeoSearch(ctx, g.key, &redis.GeoSearchQuery{
		Longitude:  origin.Lon,
		Latitude:   origin.Lat,
		Radius:     km,
		RadiusUnit: "km",
		Sort:       "ASC",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("geosearch: %w", err)
	}
	ids := make([]uint64, 0, len(members))
	for _, mb := range members {
		id, err := strconv.ParseUint(strings.TrimPrefix(mb, geoMemberPrefix), 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func geoLocations(matches []model.Match) []*redis.GeoLocation {
	locs := make([]*redis.GeoLocation, 0, len(matches))
	for _, m := range matches {
		locs = append(locs, &redis.GeoLocation{Name: geoMember(m.ID), Longitude: m.Longitude, Latitude: m.Latitude})
	}
	return locs
}

// PutAll adds or moves every match without touching other members.
func (g *GeoIndex) PutAll(ctx context.Context, matches []model.Match) error {
	if len(matches) == 0 {
		return nil
	}
	return g.rdb.GeoAdd(ctx, g.key, geoLocations(matches)...).Err()
}

// Members lists the ids currently indexed.
func (g *GeoIndex) Members(ctx context.Context) ([]uint64, error) {
	names, err := g.rdb.ZRange(ctx, g.key, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, len(names))
	for _, n := range names {
		if id, err := strconv.ParseUint(strings.TrimPrefix(n, geoMemberPrefix), 10, 64); err == nil {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Rebuild replaces the index with the given matches.
func (g *GeoIndex) Rebuild(ctx context.Context, matches []model.Match) error {
	pipe := g.rdb.TxPipeline()
	pipe.Del(ctx, g.key)
	if len(matches) > 0 {
		pipe.GeoAdd(ctx, g.key, geoLocations(matches)...)
	}
	_, err := pipe.Exec(ctx)
	return err
}
