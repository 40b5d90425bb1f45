package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/tray-validation-backend/internal/domain"
)

// ItemSeed describes one initial item and the cameras it is boxed on.
type ItemSeed struct {
	Type        types.ItemType
	Cameras     []int
	Orientation *string
}

type RecognitionSeed struct {
	Key     string
	BatchID string
	Items   []ItemSeed
	// LineOptions holds, per recipe line, the number of candidate options.
	LineOptions []int
}

type RecognitionFixture struct {
	Recognition *types.Recognition
	Main        *types.Image
	Qualifying  *types.Image
	Items       []*types.InitialItem
	Annotations []*types.InitialAnnotation
	Lines       []*types.RecipeLine
}

func SeedRecognition(tb testing.TB, ctx context.Context, tx *gorm.DB, seed RecognitionSeed) *RecognitionFixture {
	tb.Helper()
	if seed.Key == "" {
		seed.Key = uuid.NewString()
	}
	db := tx.WithContext(ctx)

	rec := &types.Recognition{
		ID:             uuid.New(),
		RecognitionKey: seed.Key,
		BatchID:        seed.BatchID,
		CreatedAt:      time.Now().UTC(),
	}
	if err := db.Create(rec).Error; err != nil {
		tb.Fatalf("seed recognition: %v", err)
	}
	fx := &RecognitionFixture{Recognition: rec}

	fx.Main = &types.Image{RecognitionID: rec.ID, CameraNumber: types.CameraMain, StoragePath: seed.Key + "/1.jpg", Width: 1920, Height: 1080}
	fx.Qualifying = &types.Image{RecognitionID: rec.ID, CameraNumber: types.CameraQualifying, StoragePath: seed.Key + "/2.jpg", Width: 1920, Height: 1080}
	if err := db.Create([]*types.Image{fx.Main, fx.Qualifying}).Error; err != nil {
		tb.Fatalf("seed images: %v", err)
	}

	for i, n := range seed.LineOptions {
		line := &types.RecipeLine{RecognitionID: rec.ID, LineNumber: i + 1, Quantity: 1}
		for j := 0; j < n; j++ {
			line.Options = append(line.Options, types.RecipeLineOption{
				ExternalID: fmt.Sprintf("dish-%d-%d", i+1, j+1),
				Name:       fmt.Sprintf("Dish %d.%d", i+1, j+1),
				IsSelected: j == 0,
			})
		}
		if err := db.Create(line).Error; err != nil {
			tb.Fatalf("seed recipe line: %v", err)
		}
		fx.Lines = append(fx.Lines, line)
	}

	for i, is := range seed.Items {
		item := &types.InitialItem{
			RecognitionID:     rec.ID,
			Type:              is.Type,
			Quantity:          1,
			BottleOrientation: is.Orientation,
			Metadata:          datatypes.JSON([]byte(fmt.Sprintf(`{"seed":%d}`, i))),
		}
		if is.Type == types.ItemFood && len(fx.Lines) > 0 {
			item.RecipeLineID = &fx.Lines[i%len(fx.Lines)].ID
		}
		if err := db.Create(item).Error; err != nil {
			tb.Fatalf("seed initial item: %v", err)
		}
		fx.Items = append(fx.Items, item)

		for _, cam := range is.Cameras {
			img := fx.Main
			if cam == types.CameraQualifying {
				img = fx.Qualifying
			}
			off := float64(10 * i)
			ann := &types.InitialAnnotation{
				RecognitionID: rec.ID,
				InitialItemID: item.ID,
				ImageID:       img.ID,
				BBox:          types.BBox{X1: off, Y1: off, X2: off + 50, Y2: off + 40},
			}
			if err := db.Create(ann).Error; err != nil {
				tb.Fatalf("seed initial annotation: %v", err)
			}
			fx.Annotations = append(fx.Annotations, ann)
		}
	}
	return fx
}

// SeedPriorities writes one active priority version with the given order.
func SeedPriorities(tb testing.TB, ctx context.Context, tx *gorm.DB, order ...types.ValidationType) []*types.PriorityConfig {
	tb.Helper()
	var version int
	if err := tx.WithContext(ctx).
		Model(&types.PriorityConfig{}).
		Select("COALESCE(MAX(version), 0)").
		Scan(&version).Error; err != nil {
		tb.Fatalf("seed priorities: %v", err)
	}
	version++
	rows := make([]*types.PriorityConfig, 0, len(order))
	for i, t := range order {
		rows = append(rows, &types.PriorityConfig{
			ValidationType: t,
			Position:       i + 1,
			Version:        version,
			IsActive:       true,
		})
	}
	if len(rows) > 0 {
		if err := tx.WithContext(ctx).Create(&rows).Error; err != nil {
			tb.Fatalf("seed priorities: %v", err)
		}
	}
	return rows
}

func PtrUUID(v uuid.UUID) *uuid.UUID { return &v }

func PtrTime(v time.Time) *time.Time { return &v }

func PtrString(v string) *string { return &v }
