package sqlite

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/workorder-assistant/internal/core/domain"
	"github.com/custodia-labs/workorder-assistant/internal/core/ports/driven"
)

func testReferenceData() driven.ReferenceData {
	return driven.ReferenceData{
		Terms: map[domain.Category][]domain.Term{
			domain.CategoryLocation: {{Value: "No.1 PE"}, {Value: "RFCC"}},
			domain.CategoryEquipmentType: {
				{Value: "Pressure Vessel", Aliases: []string{"압력용기", "압력베젤"}},
				{Value: "Pump", Aliases: []string{"펌프"}},
			},
			domain.CategoryStatusCode: {{Value: "고장"}, {Value: "누설"}},
		},
		Records: []domain.HistoricalRecord{
			{
				ItemID: "PE-SE1304B", Process: "No.1 PE", CostCenter: "No.1 PE", Location: "No.1 PE",
				EquipmentType: "Pressure Vessel", StatusCode: "고장", Priority: "긴급작업",
				WorkTitle: "압력용기 긴급 점검", WorkDetails: "압력용기 고장 부위 확인 및 긴급 수리",
			},
			{ItemID: `44043-CA1-6"-P`, Process: "RFCC", Location: "No.1 PE", EquipmentType: "Pressure Vessel"},
			{ItemID: "RFCC-001", Process: "RFCC", Location: "RFCC", EquipmentType: "Heat Exchanger"},
		},
	}
}

func TestReferenceStore_Empty(t *testing.T) {
	refs := setupTestStore(t).ReferenceStore()
	ctx := context.Background()

	terms, err := refs.Terms(ctx, domain.CategoryLocation)
	require.NoError(t, err)
	assert.Empty(t, terms)

	records, err := refs.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)

	_, err = refs.Get(ctx, "PE-SE1304B")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReferenceStore_ReplaceAndRead(t *testing.T) {
	refs := setupTestStore(t).ReferenceStore()
	ctx := context.Background()
	data := testReferenceData()

	require.NoError(t, refs.Replace(ctx, data))

	terms, err := refs.Terms(ctx, domain.CategoryEquipmentType)
	require.NoError(t, err)
	assert.Equal(t, data.Terms[domain.CategoryEquipmentType], terms)

	locations, err := refs.Terms(ctx, domain.CategoryLocation)
	require.NoError(t, err)
	assert.Equal(t, []domain.Term{{Value: "No.1 PE", Aliases: []string{}}, {Value: "RFCC", Aliases: []string{}}}, locations)

	records, err := refs.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, data.Records, records, "records come back complete and in insertion order")

	record, err := refs.Get(ctx, `44043-CA1-6"-P`)
	require.NoError(t, err)
	assert.Equal(t, "RFCC", record.Process)

	termCount, recordCount, err := refs.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, termCount)
	assert.Equal(t, 3, recordCount)
}

func TestReferenceStore_ReplaceDropsOldData(t *testing.T) {
	refs := setupTestStore(t).ReferenceStore()
	ctx := context.Background()
	require.NoError(t, refs.Replace(ctx, testReferenceData()))

	require.NoError(t, refs.Replace(ctx, driven.ReferenceData{
		Records: []domain.HistoricalRecord{{ItemID: "Y-MV1035"}, {ItemID: "PE-SE1304B"}},
	}))

	records, err := refs.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Y-MV1035", records[0].ItemID)
	assert.Equal(t, "PE-SE1304B", records[1].ItemID)

	terms, err := refs.Terms(ctx, domain.CategoryEquipmentType)
	require.NoError(t, err)
	assert.Empty(t, terms)
}

func TestReferenceStore_ReplaceIsAtomic(t *testing.T) {
	refs := setupTestStore(t).ReferenceStore()
	ctx := context.Background()
	require.NoError(t, refs.Replace(ctx, testReferenceData()))

	err := refs.Replace(ctx, driven.ReferenceData{
		Records: []domain.HistoricalRecord{{ItemID: "DUP-1"}, {ItemID: "DUP-1"}},
	})
	require.Error(t, err)

	records, err := refs.List(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 3, "failed replace leaves the previous data")
}

func TestReferenceStore_ConcurrentReadsDuringReplace(t *testing.T) {
	refs := setupTestStore(t).ReferenceStore()
	ctx := context.Background()
	require.NoError(t, refs.Replace(ctx, testReferenceData()))

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			data := testReferenceData()
			data.Records = append(data.Records, domain.HistoricalRecord{ItemID: fmt.Sprintf("EXTRA-%d", n)})
			assert.NoError(t, refs.Replace(ctx, data))
		}(i)
		go func() {
			defer wg.Done()
			records, err := refs.List(ctx)
			assert.NoError(t, err)
			assert.True(t, len(records) == 3 || len(records) == 4, "got %d records", len(records))
		}()
	}
	wg.Wait()
}
