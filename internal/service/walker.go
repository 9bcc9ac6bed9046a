package service

import (
	"context"
	"fmt"

	"github.com/GhostQS/alphalend-supply/internal/client"
	"github.com/GhostQS/alphalend-supply/internal/domain/entity"

	"go.uber.org/zap"
)

// ContainerWalker enumerates every child of a dynamic-field container
// through the node's cursor-based paging protocol, resolving each child to
// its full object content. It holds no state across calls beyond its
// collaborators.
type ContainerWalker struct {
	rpc      client.SuiClient
	pageSize int
	logger   *zap.Logger
}

// NewContainerWalker creates a walker with the given page size.
func NewContainerWalker(rpc client.SuiClient, pageSize int, logger *zap.Logger) *ContainerWalker {
	if pageSize <= 0 {
		pageSize = 50
	}
	return &ContainerWalker{
		rpc:      rpc,
		pageSize: pageSize,
		logger:   logger.Named("ContainerWalker"),
	}
}

// Enumerate walks all pages of containerID and resolves each child.
//
// A failed page listing aborts the whole enumeration (pagination cannot
// continue without a valid cursor response). A failed or empty resolution
// of a single child only skips that child; a partial result beats no
// result.
func (w *ContainerWalker) Enumerate(ctx context.Context, containerID string) ([]entity.ContainerEntry, error) {
	var entries []entity.ContainerEntry
	var cursor *string

	for pageNum := 1; ; pageNum++ {
		page, err := w.rpc.GetDynamicFields(ctx, containerID, cursor, w.pageSize)
		if err != nil {
			return nil, fmt.Errorf("failed to list dynamic fields of %s (page %d): %w", containerID, pageNum, err)
		}

		for _, info := range page.Data {
			if info.Name.IsNull() {
				continue
			}
			obj, err := w.rpc.GetDynamicFieldObject(ctx, containerID, info.Name)
			if err != nil {
				w.logger.Warn("Skipping child object that failed to resolve",
					zap.String("containerId", containerID),
					zap.String("objectId", info.ObjectID),
					zap.Error(err))
				continue
			}
			if obj == nil {
				continue
			}
			entries = append(entries, entity.ContainerEntry{
				ContainerID: containerID,
				FieldName:   info.Name,
				ObjectID:    obj.ObjectID,
				ObjectType:  obj.Type,
				Content:     obj.Content,
			})
		}

		if !page.HasNextPage {
			break
		}
		cursor = page.NextCursor
	}

	w.logger.Debug("Container enumeration finished",
		zap.String("containerId", containerID),
		zap.Int("entries", len(entries)))
	return entries, nil
}
