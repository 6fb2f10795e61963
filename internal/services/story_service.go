package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"storybook-service/internal/models"
	"storybook-service/internal/repository"
)

// StoryService manages storybook content and its link to orders
type StoryService struct {
	store  *repository.Store
	logger *logrus.Entry
	now    func() time.Time
}

// NewStoryService creates a new story service
func NewStoryService(store *repository.Store, logger *logrus.Logger) *StoryService {
	return &StoryService{
		store:  store,
		logger: logger.WithField("component", "story_service"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// ListStories returns stories matching the filter
func (s *StoryService) ListStories(ctx context.Context, filter models.StoryFilter) ([]models.Story, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, filter.Status)
	}
	stories, err := s.store.Stories.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list stories: %w", err)
	}
	if stories == nil {
		stories = []models.Story{}
	}
	return stories, nil
}

// GetStory retrieves a story by ID
func (s *StoryService) GetStory(ctx context.Context, id string) (*models.Story, error) {
	return s.store.Stories.GetByID(ctx, id)
}

// CreateStory creates a story and links it to its order when one is given
func (s *StoryService) CreateStory(ctx context.Context, req models.StoryRequest) (*models.Story, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if req.Status == "" {
		req.Status = models.StoryStatusDraft
	}
	if !req.Status.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, req.Status)
	}

	var order *models.Order
	if req.OrderID != "" {
		o, err := s.lookupOrder(ctx, req.OrderID)
		if err != nil {
			return nil, err
		}
		order = o
	}

	now := s.now()
	story := &models.Story{
		CreatedAt: now,
	}
	applyStoryRequest(story, req, now)

	if err := s.store.Stories.Create(ctx, story); err != nil {
		return nil, fmt.Errorf("failed to create story: %w", err)
	}

	if order != nil {
		if err := s.linkOrder(ctx, order, story.ID); err != nil {
			return nil, err
		}
	}

	s.logger.WithFields(logrus.Fields{"story_id": story.ID, "order_id": story.OrderID}).Info("Story created")
	return story, nil
}

// UpdateStory replaces the editable fields of a story
func (s *StoryService) UpdateStory(ctx context.Context, id string, req models.StoryRequest) (*models.Story, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if req.Status != "" && !req.Status.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, req.Status)
	}

	story, err := s.store.Stories.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var order *models.Order
	if req.OrderID != "" && req.OrderID != story.OrderID {
		o, err := s.lookupOrder(ctx, req.OrderID)
		if err != nil {
			return nil, err
		}
		order = o
	}

	if req.Status == "" {
		req.Status = story.Status
	}
	applyStoryRequest(story, req, s.now())

	if err := s.store.Stories.Update(ctx, story); err != nil {
		return nil, fmt.Errorf("failed to update story: %w", err)
	}
	if order != nil {
		if err := s.linkOrder(ctx, order, story.ID); err != nil {
			return nil, err
		}
	}
	return story, nil
}

// DeleteStory removes a story
func (s *StoryService) DeleteStory(ctx context.Context, id string) error {
	return s.store.Stories.Delete(ctx, id)
}

// MarkRendered records a finished PDF render. The story becomes ready and
// the linked order picks up the pdf key.
func (s *StoryService) MarkRendered(ctx context.Context, storyID, pdfKey string) error {
	story, err := s.store.Stories.GetByID(ctx, storyID)
	if err != nil {
		return err
	}

	story.PDFKey = pdfKey
	story.Status = models.StoryStatusReady
	story.UpdatedAt = s.now()
	if err := s.store.Stories.Update(ctx, story); err != nil {
		return fmt.Errorf("failed to update story: %w", err)
	}

	if story.OrderID == "" {
		return nil
	}
	order, err := s.store.Orders.GetByID(ctx, story.OrderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.WithField("order_id", story.OrderID).Warn("Rendered story references a missing order")
			return nil
		}
		return err
	}
	order.Assets.PDFKey = pdfKey
	if order.StoryID == "" {
		order.StoryID = story.ID
	}
	order.UpdatedAt = s.now()
	if err := s.store.Orders.Update(ctx, order); err != nil {
		return fmt.Errorf("failed to attach pdf to order: %w", err)
	}
	return nil
}

func (s *StoryService) lookupOrder(ctx context.Context, id string) (*models.Order, error) {
	order, err := s.store.Orders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: order %s does not exist", ErrValidation, id)
		}
		return nil, err
	}
	return order, nil
}

func (s *StoryService) linkOrder(ctx context.Context, order *models.Order, storyID string) error {
	if order.StoryID == storyID {
		return nil
	}
	order.StoryID = storyID
	order.UpdatedAt = s.now()
	if err := s.store.Orders.Update(ctx, order); err != nil {
		return fmt.Errorf("failed to link story to order: %w", err)
	}
	return nil
}

func applyStoryRequest(story *models.Story, req models.StoryRequest, now time.Time) {
	story.Title = strings.TrimSpace(req.Title)
	story.ChildName = strings.TrimSpace(req.ChildName)
	story.OrderID = req.OrderID
	story.Pages = req.Pages
	if story.Pages == nil {
		story.Pages = []models.StoryPage{}
	}
	story.CoverImageKey = req.CoverImageKey
	story.PDFKey = req.PDFKey
	story.VoiceRecordingKeys = req.VoiceRecordingKeys
	if story.VoiceRecordingKeys == nil {
		story.VoiceRecordingKeys = []string{}
	}
	story.Status = req.Status
	story.UpdatedAt = now
}
