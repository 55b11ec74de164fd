package postgres

import "github.com/jackc/pgx/v5/pgxpool"

// Repositories groups concrete PostgreSQL repository implementations.
type Repositories struct {
	BusinessUnits *BusinessUnitRepository
	Marketplaces  *MarketplaceRepository
	Products      *ProductRepository
	Campaigns     *CampaignRepository
	Changelogs    *ChangelogRepository
	Tags          *TagRepository
}

// NewRepositories wires all repositories backed by the provided pool.
func NewRepositories(pool *pgxpool.Pool) *Repositories {
	return &Repositories{
		BusinessUnits: NewBusinessUnitRepository(pool),
		Marketplaces:  NewMarketplaceRepository(pool),
		Products:      NewProductRepository(pool),
		Campaigns:     NewCampaignRepository(pool),
		Changelogs:    NewChangelogRepository(pool),
		Tags:          NewTagRepository(pool),
	}
}
