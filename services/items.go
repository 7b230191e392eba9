package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"research_portal_api/apperr"
	"research_portal_api/authz"
	"research_portal_api/models"
	"research_portal_api/storage"
)

// MaxProvisionQuantity caps one intake request.
const MaxProvisionQuantity = 500

// ItemInput is one unit at intake.
type ItemInput struct {
	Description       string                   `json:"description"`
	PhysicalCondition models.PhysicalCondition `json:"estado_fisico"`
	AdminStatus       models.AdminStatus       `json:"estado_admin"`
	Image             string                   `json:"imagen"`
	Observation       string                   `json:"observacion"`
}

// ProvisionTemplate is ItemInput plus the expansion controls.
type ProvisionTemplate struct {
	ItemInput
	Quantity *int     `json:"cantidad"`
	Images   []string `json:"imagenes"`
}

// ItemPatch carries the fields an admin may edit; nil means unchanged.
type ItemPatch struct {
	Description       *string                   `json:"description"`
	PhysicalCondition *models.PhysicalCondition `json:"estado_fisico"`
	AdminStatus       *models.AdminStatus       `json:"estado_admin"`
	Image             *string                   `json:"imagen"`
	Observation       *string                   `json:"observacion"`
}

type ItemService struct {
	store   ItemStore
	objects storage.ObjectStore
	log     *zap.Logger
}

func NewItemService(store ItemStore, objects storage.ObjectStore, log *zap.Logger) *ItemService {
	return &ItemService{store: store, objects: objects, log: log}
}

// Provision accepts either a template object (optionally with cantidad
// and one imagenes entry per unit) or an array of items. Every unit is
// validated before anything is written.
func (s *ItemService) Provision(ctx context.Context, p authz.Principal, body []byte) ([]*models.InventoryItem, error) {
	if err := authz.Can(p, authz.WriteInventory); err != nil {
		return nil, err
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, apperr.Validation("body", "is required")
	}

	var items []*models.InventoryItem
	if body[0] == '[' {
		var list []ItemInput
		if err := json.Unmarshal(body, &list); err != nil {
			return nil, apperr.Validation("body", "malformed item list")
		}
		if len(list) == 0 {
			return nil, apperr.Validation("body", "item list is empty")
		}
		if len(list) > MaxProvisionQuantity {
			return nil, apperr.Validation("body", fmt.Sprintf("at most %d items per request", MaxProvisionQuantity))
		}
		for i, in := range list {
			it, err := s.buildItem(in, fmt.Sprintf("[%d].", i))
			if err != nil {
				return nil, err
			}
			items = append(items, it)
		}
	} else {
		var tpl ProvisionTemplate
		if err := json.Unmarshal(body, &tpl); err != nil {
			return nil, apperr.Validation("body", "malformed item")
		}
		var err error
		if items, err = s.expand(tpl); err != nil {
			return nil, err
		}
	}

	if err := s.store.CreateItems(ctx, items); err != nil {
		return nil, err
	}
	s.log.Info("items provisioned", zap.Int("count", len(items)), zap.String("by", p.UID))
	return items, nil
}

func (s *ItemService) expand(tpl ProvisionTemplate) ([]*models.InventoryItem, error) {
	qty := 1
	if tpl.Quantity != nil {
		qty = *tpl.Quantity
	}
	if qty < 1 {
		return nil, apperr.Validation("cantidad", "must be at least 1")
	}
	if qty > MaxProvisionQuantity {
		return nil, apperr.Validation("cantidad", fmt.Sprintf("must be at most %d", MaxProvisionQuantity))
	}
	if tpl.Images != nil && len(tpl.Images) != qty {
		return nil, apperr.Validation("imagenes", fmt.Sprintf("must have exactly %d entries, got %d", qty, len(tpl.Images)))
	}

	items := make([]*models.InventoryItem, 0, qty)
	for i := 0; i < qty; i++ {
		in := tpl.ItemInput
		prefix := ""
		if tpl.Images != nil {
			in.Image = tpl.Images[i]
			prefix = fmt.Sprintf("imagenes[%d]:", i)
		}
		it, err := s.buildItem(in, prefix)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, nil
}

func (s *ItemService) buildItem(in ItemInput, fieldPrefix string) (*models.InventoryItem, error) {
	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		return nil, apperr.Validation(fieldPrefix+"description", "is required")
	}
	if in.PhysicalCondition == "" {
		return nil, apperr.Validation(fieldPrefix+"estado_fisico", "is required")
	}
	if !in.PhysicalCondition.Valid() {
		return nil, apperr.Validation(fieldPrefix+"estado_fisico", "unknown physical condition")
	}
	if in.AdminStatus == "" {
		return nil, apperr.Validation(fieldPrefix+"estado_admin", "is required")
	}
	if !in.AdminStatus.Valid() {
		return nil, apperr.Validation(fieldPrefix+"estado_admin", "unknown status")
	}
	if in.AdminStatus == models.StatusLoaned {
		return nil, apperr.Validation(fieldPrefix+"estado_admin", "only a loan can mark an item as loaned")
	}
	it := &models.InventoryItem{
		Description:       desc,
		PhysicalCondition: in.PhysicalCondition,
		AdminStatus:       in.AdminStatus,
		Observation:       strings.TrimSpace(in.Observation),
	}
	if strings.TrimSpace(in.Image) != "" {
		u, err := s.objects.Resolve(in.Image)
		if err != nil {
			return nil, apperr.Validation(fieldPrefix+"imagen", err.Error())
		}
		it.ImageURL = u
	}
	return it, nil
}

func (s *ItemService) Get(ctx context.Context, p authz.Principal, id string) (*models.InventoryItem, error) {
	if err := authz.Can(p, authz.ReadInventory); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperr.NotFound("item")
	}
	return s.store.FindItemByID(ctx, id)
}

func (s *ItemService) List(ctx context.Context, p authz.Principal, q models.ItemQuery) (models.ItemPage, error) {
	if err := authz.Can(p, authz.ReadInventory); err != nil {
		return models.ItemPage{}, err
	}
	if q.Status != "" && !q.Status.Valid() {
		return models.ItemPage{}, apperr.Validation("status", "unknown status")
	}
	q.Normalize()
	return s.store.ListItems(ctx, q)
}

// Update edits descriptive fields. The administrative status may move
// between Disponible and No prestar only while the item is not on loan.
func (s *ItemService) Update(ctx context.Context, p authz.Principal, id string, patch ItemPatch) (*models.InventoryItem, error) {
	if err := authz.Can(p, authz.WriteInventory); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperr.NotFound("item")
	}
	var newImage string
	if patch.Image != nil && strings.TrimSpace(*patch.Image) != "" {
		u, err := s.objects.Resolve(*patch.Image)
		if err != nil {
			return nil, apperr.Validation("imagen", err.Error())
		}
		newImage = u
	}

	var staleImage string
	it, err := s.store.UpdateItem(ctx, id, func(it *models.InventoryItem) error {
		if patch.Description != nil {
			d := strings.TrimSpace(*patch.Description)
			if d == "" {
				return apperr.Validation("description", "must not be empty")
			}
			it.Description = d
		}
		if patch.PhysicalCondition != nil {
			if !patch.PhysicalCondition.Valid() {
				return apperr.Validation("estado_fisico", "unknown physical condition")
			}
			it.PhysicalCondition = *patch.PhysicalCondition
		}
		if patch.AdminStatus != nil && *patch.AdminStatus != it.AdminStatus {
			next := *patch.AdminStatus
			switch {
			case !next.Valid():
				return apperr.Validation("estado_admin", "unknown status")
			case next == models.StatusLoaned:
				return apperr.Validation("estado_admin", "only a loan can mark an item as loaned")
			case it.AdminStatus == models.StatusLoaned:
				return apperr.Conflict("item is on loan; return it first")
			}
			it.AdminStatus = next
		}
		if patch.Observation != nil {
			it.Observation = strings.TrimSpace(*patch.Observation)
		}
		if newImage != "" && newImage != it.ImageURL {
			staleImage = it.ImageURL
			it.ImageURL = newImage
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.dropObject(ctx, staleImage)
	return it, nil
}

// DetachImage deletes the item's image object and clears the reference
// while the row is held, so a concurrent Update cannot swap the image in
// between. A storage failure aborts without touching the row.
func (s *ItemService) DetachImage(ctx context.Context, p authz.Principal, id string) (*models.InventoryItem, error) {
	if err := authz.Can(p, authz.WriteInventory); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperr.NotFound("item")
	}
	return s.store.UpdateItem(ctx, id, func(it *models.InventoryItem) error {
		if it.ImageURL == "" {
			return apperr.NotFound("image")
		}
		if key, ok := s.objects.KeyFromURL(it.ImageURL); ok {
			if err := s.objects.Delete(ctx, key); err != nil {
				s.log.Error("delete item image", zap.String("item", id), zap.String("key", key), zap.Error(err))
				return err
			}
		}
		it.ImageURL = ""
		return nil
	})
}

// dropObject is the best-effort delete used when a reference is replaced.
func (s *ItemService) dropObject(ctx context.Context, url string) {
	dropObject(ctx, s.objects, s.log, url)
}

func dropObject(ctx context.Context, objects storage.ObjectStore, log *zap.Logger, url string) {
	if url == "" {
		return
	}
	key, ok := objects.KeyFromURL(url)
	if !ok {
		log.Warn("object outside public base left in place", zap.String("url", url))
		return
	}
	if err := objects.Delete(ctx, key); err != nil {
		var ae *apperr.Error
		if !errors.As(err, &ae) {
			err = apperr.Storage("delete", err)
		}
		log.Warn("delete replaced object", zap.String("key", key), zap.Error(err))
	}
}
