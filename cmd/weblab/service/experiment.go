package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/modelverse/weblab/cmd/weblab/models"
	"github.com/modelverse/weblab/cmd/weblab/repository"
	"github.com/modelverse/weblab/common/clients"
	"github.com/modelverse/weblab/common/logger"
	"github.com/modelverse/weblab/common/metrics"
	"github.com/modelverse/weblab/common/queue"
)

// experimentsTopic carries submitted experiments to the dispatcher
const experimentsTopic = "experiments"

// ExperimentService runs protocols against models through the external
// simulation service. Version resolution and permission checks go through
// the cache tables only; the entity repositories are never consulted here.
type ExperimentService struct {
	expRepo    *repository.ExperimentRepository
	entityRepo *repository.EntityRepository
	lookup     *LookupService
	visibility *VisibilityService
	chaste     *clients.ChasteClient
	queue      queue.Queue
	log        *logger.Logger
}

// NewExperimentService creates a new experiment service
func NewExperimentService(
	expRepo *repository.ExperimentRepository,
	entityRepo *repository.EntityRepository,
	lookup *LookupService,
	visibility *VisibilityService,
	chaste *clients.ChasteClient,
	q queue.Queue,
	log *logger.Logger,
) *ExperimentService {
	return &ExperimentService{
		expRepo:    expRepo,
		entityRepo: entityRepo,
		lookup:     lookup,
		visibility: visibility,
		chaste:     chaste,
		queue:      q,
		log:        log,
	}
}

// SubmitRequest names the model version and protocol version to pair
type SubmitRequest struct {
	ModelID     uuid.UUID `json:"model_id"`
	ModelRef    string    `json:"model_ref"`
	ProtocolID  uuid.UUID `json:"protocol_id"`
	ProtocolRef string    `json:"protocol_ref"`
}

// Submit records an experiment and queues it for dispatch to the
// simulation service. The caller must be able to see both versions.
func (s *ExperimentService) Submit(ctx context.Context, user models.User, req *SubmitRequest) (*models.Experiment, error) {
	modelVersion, err := s.lookup.GetVersion(ctx, req.ModelID, req.ModelRef)
	if err != nil {
		return nil, err
	}

	protocolVersion, err := s.lookup.GetVersion(ctx, req.ProtocolID, req.ProtocolRef)
	if err != nil {
		return nil, err
	}

	if err := s.checkViewable(ctx, user, req.ModelID, modelVersion.Visibility); err != nil {
		return nil, err
	}
	if err := s.checkViewable(ctx, user, req.ProtocolID, protocolVersion.Visibility); err != nil {
		return nil, err
	}

	now := time.Now()
	exp := &models.Experiment{
		ID:          uuid.New(),
		ModelID:     req.ModelID,
		ModelSHA:    modelVersion.SHA,
		ProtocolID:  req.ProtocolID,
		ProtocolSHA: protocolVersion.SHA,
		Status:      models.StatusQueued,
		CreatedBy:   user.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.expRepo.Create(ctx, exp); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(exp)
	if err != nil {
		return nil, fmt.Errorf("failed to encode experiment: %w", err)
	}

	if err := s.queue.Publish(ctx, experimentsTopic, exp.ID.String(), payload); err != nil {
		// The row would otherwise sit in queued forever; mark it failed
		// so the caller's retry starts clean.
		note := "dispatch queue rejected the experiment"
		if updErr := s.expRepo.UpdateStatus(ctx, exp.ID, models.StatusFailed, &note); updErr != nil {
			s.log.Error("failed to mark experiment failed", "experiment_id", exp.ID, "error", updErr)
		}
		return nil, fmt.Errorf("failed to queue experiment: %w", err)
	}

	metrics.ExperimentsSubmitted.Inc()
	s.log.Info("submitted experiment",
		"experiment_id", exp.ID,
		"model", exp.ModelID,
		"model_sha", exp.ModelSHA,
		"protocol", exp.ProtocolID,
		"protocol_sha", exp.ProtocolSHA,
		"joint_visibility", models.JointVisibility(modelVersion.Visibility, protocolVersion.Visibility),
	)

	return exp, nil
}

func (s *ExperimentService) checkViewable(ctx context.Context, user models.User, entityID uuid.UUID, v models.Visibility) error {
	if v.WorldReadable() {
		return nil
	}

	viewers, err := s.entityRepo.Viewers(ctx, entityID)
	if err != nil {
		return err
	}

	if !VisibilityCheck(v, viewers, user) {
		return fmt.Errorf("entity %s: %w", entityID, ErrForbidden)
	}

	return nil
}

// submitRun posts one experiment to the simulation service. The request
// runs as the submitting user so the service sees the same identity that
// passed the visibility checks.
func (s *ExperimentService) submitRun(ctx context.Context, exp *models.Experiment, callbackBase string) (*clients.SubmitRunResponse, error) {
	ctx = clients.WithUserID(ctx, exp.CreatedBy)
	return s.chaste.SubmitRun(ctx, &clients.SubmitRunRequest{
		ExperimentID: exp.ID.String(),
		ModelSHA:     exp.ModelSHA,
		ProtocolSHA:  exp.ProtocolSHA,
		CallbackURL:  fmt.Sprintf("%s/api/v1/experiments/%s/callback", callbackBase, exp.ID),
	})
}

// StartDispatcher consumes queued experiments and hands them to the
// simulation service. Call once at startup.
func (s *ExperimentService) StartDispatcher(ctx context.Context, callbackBase string) error {
	return s.queue.Subscribe(ctx, experimentsTopic, func(ctx context.Context, key string, value []byte) error {
		var exp models.Experiment
		if err := json.Unmarshal(value, &exp); err != nil {
			return fmt.Errorf("failed to decode experiment message: %w", err)
		}

		resp, err := s.submitRun(ctx, &exp, callbackBase)
		if err != nil {
			note := err.Error()
			if updErr := s.expRepo.UpdateStatus(ctx, exp.ID, models.StatusFailed, &note); updErr != nil {
				s.log.Error("failed to mark experiment failed", "experiment_id", exp.ID, "error", updErr)
			}
			return err
		}

		s.log.Info("dispatched experiment", "experiment_id", exp.ID, "task_id", resp.TaskID)
		return s.expRepo.UpdateStatus(ctx, exp.ID, models.StatusRunning, nil)
	})
}

// HandleCallback records a status report from the simulation service
func (s *ExperimentService) HandleCallback(ctx context.Context, id uuid.UUID, status models.ExperimentStatus, note *string) error {
	if !status.Valid() {
		return fmt.Errorf("invalid experiment status: %q", status)
	}

	if err := s.expRepo.UpdateStatus(ctx, id, status, note); err != nil {
		return err
	}

	s.log.Info("experiment status updated", "experiment_id", id, "status", status)
	return nil
}

// Get retrieves an experiment if user may see it. An experiment is as
// visible as the least visible of its two versions.
func (s *ExperimentService) Get(ctx context.Context, user models.User, id uuid.UUID) (*models.Experiment, error) {
	exp, err := s.expRepo.GetByID(ctx, id)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("experiment %s: %w", id, ErrNotFound)
		}
		return nil, err
	}

	if err := s.checkExperimentViewable(ctx, user, exp); err != nil {
		return nil, err
	}

	return exp, nil
}

// checkExperimentViewable requires the caller to be able to see both of
// the experiment's versions, each at its own visibility level
func (s *ExperimentService) checkExperimentViewable(ctx context.Context, user models.User, exp *models.Experiment) error {
	modelVersion, err := s.lookup.GetVersion(ctx, exp.ModelID, exp.ModelSHA)
	if err != nil {
		return err
	}
	protocolVersion, err := s.lookup.GetVersion(ctx, exp.ProtocolID, exp.ProtocolSHA)
	if err != nil {
		return err
	}

	if err := s.checkViewable(ctx, user, exp.ModelID, modelVersion.Visibility); err != nil {
		return err
	}
	return s.checkViewable(ctx, user, exp.ProtocolID, protocolVersion.Visibility)
}

// Visibility computes an experiment's joint visibility from the cached
// versions it references
func (s *ExperimentService) Visibility(ctx context.Context, exp *models.Experiment) (models.Visibility, error) {
	modelVersion, err := s.lookup.GetVersion(ctx, exp.ModelID, exp.ModelSHA)
	if err != nil {
		return "", err
	}

	protocolVersion, err := s.lookup.GetVersion(ctx, exp.ProtocolID, exp.ProtocolSHA)
	if err != nil {
		return "", err
	}

	return models.JointVisibility(modelVersion.Visibility, protocolVersion.Visibility), nil
}

// ListForPair retrieves the experiments joining one model and one protocol,
// filtered to those user may see
func (s *ExperimentService) ListForPair(ctx context.Context, user models.User, modelID, protocolID uuid.UUID) ([]*models.Experiment, error) {
	experiments, err := s.expRepo.ListForPair(ctx, modelID, protocolID)
	if err != nil {
		return nil, err
	}

	visible := make([]*models.Experiment, 0, len(experiments))
	for _, exp := range experiments {
		// A dangling experiment whose versions left the cache is
		// invisible rather than an error for the whole listing
		if err := s.checkExperimentViewable(ctx, user, exp); err != nil {
			continue
		}
		visible = append(visible, exp)
	}

	return visible, nil
}
