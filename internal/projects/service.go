package projects

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// SubmitProjectInput carries a new project submission
type SubmitProjectInput struct {
	Title               string       `json:"title" binding:"required"`
	ProjectType         string       `json:"project_type" binding:"required"`
	Description         string       `json:"description"`
	PlantingDate        *time.Time   `json:"planting_date"`
	LocationName        string       `json:"location_name"`
	Latitude            float64      `json:"latitude"`
	Longitude           float64      `json:"longitude"`
	AreaHectares        float64      `json:"area_hectares" binding:"required"`
	PlantedAreaHectares float64      `json:"planted_area_hectares" binding:"required"`
	TreeSpecies         []string     `json:"tree_species"`
	Media               []MediaInput `json:"media"`
}

// MediaInput is an already-uploaded file reference
type MediaInput struct {
	FileURL   string `json:"file_url" binding:"required"`
	FileName  string `json:"file_name"`
	MediaType string `json:"media_type"`
	FileSize  int64  `json:"file_size"`
}

// Service exposes project intake and querying
type Service struct {
	repo              Repository
	search            *SearchIndex
	creditsPerHectare float64
	logger            *zap.Logger
}

func NewService(repo Repository, search *SearchIndex, creditsPerHectare float64, logger *zap.Logger) *Service {
	if creditsPerHectare <= 0 {
		creditsPerHectare = 20
	}
	return &Service{
		repo:              repo,
		search:            search,
		creditsPerHectare: creditsPerHectare,
		logger:            logger,
	}
}

// EstimateCredits converts a planted area in hectares into whole tCO2e.
func (s *Service) EstimateCredits(plantedAreaHectares float64) int64 {
	return int64(math.Round(plantedAreaHectares * s.creditsPerHectare))
}

// Submit validates and stores a new project in pending state.
func (s *Service) Submit(ctx context.Context, submittedBy uuid.UUID, input SubmitProjectInput) (*Project, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, fmt.Errorf("title is required")
	}
	if input.AreaHectares <= 0 {
		return nil, fmt.Errorf("area_hectares must be positive")
	}
	if input.PlantedAreaHectares <= 0 || input.PlantedAreaHectares > input.AreaHectares {
		return nil, fmt.Errorf("planted_area_hectares must be positive and within area_hectares")
	}
	if input.Latitude < -90 || input.Latitude > 90 {
		return nil, fmt.Errorf("latitude out of range")
	}
	if input.Longitude < -180 || input.Longitude > 180 {
		return nil, fmt.Errorf("longitude out of range")
	}

	species, err := json.Marshal(input.TreeSpecies)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tree species: %w", err)
	}

	project := &Project{
		ID:                  uuid.New(),
		Title:               input.Title,
		ProjectType:         input.ProjectType,
		Description:         input.Description,
		PlantingDate:        input.PlantingDate,
		LocationName:        input.LocationName,
		Latitude:            input.Latitude,
		Longitude:           input.Longitude,
		AreaHectares:        input.AreaHectares,
		PlantedAreaHectares: input.PlantedAreaHectares,
		TreeSpecies:         datatypes.JSON(species),
		Status:              StatusPending,
		EstimatedCO2Tons:    s.EstimateCredits(input.PlantedAreaHectares),
		SubmittedBy:         submittedBy,
	}

	if err := s.repo.Create(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	if len(input.Media) > 0 {
		media := make([]ProjectMedia, 0, len(input.Media))
		for _, m := range input.Media {
			media = append(media, ProjectMedia{
				ProjectID: project.ID,
				FileURL:   m.FileURL,
				FileName:  m.FileName,
				MediaType: m.MediaType,
				FileSize:  m.FileSize,
			})
		}
		if err := s.repo.AddMedia(ctx, media); err != nil {
			s.logger.Warn("failed to attach project media",
				zap.String("project_id", project.ID.String()),
				zap.Error(err))
		} else {
			project.Media = media
		}
	}

	if s.search != nil {
		if err := s.search.Index(ctx, project); err != nil {
			s.logger.Warn("failed to index project",
				zap.String("project_id", project.ID.String()),
				zap.Error(err))
		}
	}

	s.logger.Info("project submitted",
		zap.String("project_id", project.ID.String()),
		zap.Int64("estimated_co2_tons", project.EstimatedCO2Tons))

	return project, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Project, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ProjectFilter) ([]Project, error) {
	return s.repo.List(ctx, filter)
}

// Search queries the Elasticsearch index and falls back to a database scan
// when the index is unavailable.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]Project, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if s.search != nil {
		ids, err := s.search.Search(ctx, query, limit)
		if err == nil {
			return s.resolveIDs(ctx, ids)
		}
		s.logger.Warn("search index query failed, falling back to database", zap.Error(err))
	}
	return s.repo.List(ctx, ProjectFilter{Limit: limit})
}

func (s *Service) resolveIDs(ctx context.Context, ids []uuid.UUID) ([]Project, error) {
	projects := make([]Project, 0, len(ids))
	for _, id := range ids {
		p, err := s.repo.GetByID(ctx, id)
		if err != nil {
			continue // index can lag deletes
		}
		projects = append(projects, *p)
	}
	return projects, nil
}
