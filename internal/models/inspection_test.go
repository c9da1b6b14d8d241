package models

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestCondition_Ordering(t *testing.T) {
	assert.Equal(t, 0, ConditionNew.Rank())
	assert.Equal(t, 4, ConditionOutOfService.Rank())
	assert.Equal(t, -1, Condition("BROKEN").Rank())

	assert.True(t, ConditionDegraded.WorseThan(ConditionGood))
	assert.False(t, ConditionGood.WorseThan(ConditionNormalWear))
	assert.Len(t, Conditions(), 5)

	assert.True(t, ConditionDegraded.AllowsDegradations())
	assert.True(t, ConditionOutOfService.AllowsDegradations())
	assert.False(t, ConditionNormalWear.AllowsDegradations())
}

func TestElementCategory_Accepts(t *testing.T) {
	tests := []struct {
		name     string
		category ElementCategory
		nature   Nature
		expected bool
	}{
		{name: "floor accepts parquet", category: CategoryFloor, nature: NatureParquet, expected: true},
		{name: "floor rejects wallpaper", category: CategoryFloor, nature: NatureWallpaper, expected: false},
		{name: "other accepted everywhere", category: CategoryAppliance, nature: NatureOther, expected: true},
		{name: "unknown category", category: ElementCategory("ROOF"), nature: NatureOther, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.category.Accepts(tt.nature))
		})
	}
}

func TestElement_Validate(t *testing.T) {
	valid := func() Element {
		return Element{
			Category:  CategoryFloor,
			Name:      "Flooring",
			Natures:   datatypes.JSONSlice[NatureTag]{{Nature: NatureParquet}},
			Condition: ConditionGood,
		}
	}

	tests := []struct {
		name    string
		mutate  func(e *Element)
		wantErr string
	}{
		{name: "valid element", mutate: func(e *Element) {}},
		{
			name:    "missing natures",
			mutate:  func(e *Element) { e.Natures = nil },
			wantErr: "at least one nature",
		},
		{
			name:    "nature outside category",
			mutate:  func(e *Element) { e.Natures = datatypes.JSONSlice[NatureTag]{{Nature: NatureWallpaper}} },
			wantErr: "not valid for category",
		},
		{
			name:    "other nature without text",
			mutate:  func(e *Element) { e.Natures = datatypes.JSONSlice[NatureTag]{{Nature: NatureOther}} },
			wantErr: "requires a description",
		},
		{
			name: "other nature with text",
			mutate: func(e *Element) {
				e.Natures = datatypes.JSONSlice[NatureTag]{{Nature: NatureOther, Other: "cork"}}
			},
		},
		{
			name: "text on closed nature",
			mutate: func(e *Element) {
				e.Natures = datatypes.JSONSlice[NatureTag]{{Nature: NatureParquet, Other: "oak"}}
			},
			wantErr: "only OTHER tags",
		},
		{
			name: "degradations on good element",
			mutate: func(e *Element) {
				e.Degradations = datatypes.JSONSlice[DegradationTag]{{Type: DegradationScratch}}
			},
			wantErr: "degradations are only recorded",
		},
		{
			name: "degradations on degraded element",
			mutate: func(e *Element) {
				e.Condition = ConditionDegraded
				e.Degradations = datatypes.JSONSlice[DegradationTag]{{Type: DegradationScratch}}
			},
		},
		{
			name: "unknown degradation",
			mutate: func(e *Element) {
				e.Condition = ConditionOutOfService
				e.Degradations = datatypes.JSONSlice[DegradationTag]{{Type: "MELTED"}}
			},
			wantErr: "unknown degradation",
		},
		{
			name:    "unknown condition",
			mutate:  func(e *Element) { e.Condition = "PRISTINE" },
			wantErr: "unknown condition",
		},
		{
			name:    "blank name",
			mutate:  func(e *Element) { e.Name = "  " },
			wantErr: "name is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			element := valid()
			tt.mutate(&element)

			err := element.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestElement_NormalizeClearsDegradations(t *testing.T) {
	element := Element{
		Condition:    ConditionGood,
		Degradations: datatypes.JSONSlice[DegradationTag]{{Type: DegradationStain}},
	}

	element.Normalize()

	assert.Empty(t, element.Degradations)
	assert.NotNil(t, element.Natures)
}

func TestPhoto_Validate(t *testing.T) {
	hash := strings.Repeat("ab", 32)

	photo := Photo{URL: "https://cdn.example.com/p.jpg", Type: PhotoOverview, ContentHash: strings.ToUpper(hash)}
	require.NoError(t, photo.Validate())
	assert.Equal(t, hash, photo.ContentHash)

	bad := Photo{URL: "https://cdn.example.com/p.jpg", Type: PhotoDetail, ContentHash: "abc"}
	assert.Error(t, bad.Validate())

	noURL := Photo{Type: PhotoDetail, ContentHash: hash}
	assert.Error(t, noURL.Validate())
}

func TestMeter_Validate(t *testing.T) {
	assert.NoError(t, (&Meter{Type: MeterWater, IndexReading: decimal.RequireFromString("1234.5")}).Validate())
	assert.NoError(t, (&Meter{Type: MeterGas, NoGasService: true}).Validate())
	assert.Error(t, (&Meter{Type: MeterWater, NoGasService: true}).Validate())
	assert.Error(t, (&Meter{Type: MeterWater, IndexReading: decimal.NewFromInt(-1)}).Validate())
	assert.Error(t, (&Meter{Type: "STEAM"}).Validate())
}

func TestKey_Validate(t *testing.T) {
	key := Key{Type: "  front door ", Quantity: 2}
	require.NoError(t, key.Validate())
	assert.Equal(t, "front door", key.Type)

	assert.Error(t, (&Key{Type: "", Quantity: 1}).Validate())
	assert.Error(t, (&Key{Type: "garage", Quantity: -1}).Validate())
}

func TestInspection_PartyRole(t *testing.T) {
	owner, occupant := uuid.New(), uuid.New()
	inspection := Inspection{OwnerID: owner, OccupantID: occupant}

	assert.Equal(t, RoleOwner, inspection.PartyRole(owner))
	assert.Equal(t, RoleOccupant, inspection.PartyRole(occupant))
	assert.Equal(t, SignerRole(""), inspection.PartyRole(uuid.New()))
	assert.Equal(t, SignerRole(""), inspection.PartyRole(uuid.Nil))
}

func TestInspection_Summarize(t *testing.T) {
	inspection := Inspection{
		Rooms: []Room{
			{
				Name:      "Living Room",
				Completed: true,
				Position:  0,
				Elements: []Element{
					{Condition: ConditionGood},
					{Condition: ConditionDegraded},
					{Condition: ConditionGood, Absent: true},
				},
				Photos: []Photo{{}, {}},
			},
			{Name: "Kitchen", Position: 3},
		},
	}

	summary := inspection.Summarize()

	assert.Equal(t, 2, summary.TotalRooms)
	assert.Equal(t, 1, summary.CompletedRooms)
	assert.Equal(t, 3, summary.TotalElements)
	assert.Equal(t, 1, summary.AbsentElements)
	assert.Equal(t, 1, summary.ByCondition[ConditionGood])
	assert.Equal(t, 1, summary.ByCondition[ConditionDegraded])
	assert.Equal(t, 0, summary.ByCondition[ConditionNew])
	assert.Equal(t, 2, summary.Rooms[0].PhotoCount)
	assert.Equal(t, 4, inspection.NextRoomPosition())
}

func TestInspectionStatus_IsFinalized(t *testing.T) {
	assert.False(t, StatusDraft.IsFinalized())
	assert.False(t, StatusPendingSignature.IsFinalized())
	assert.True(t, StatusSigned.IsFinalized())
	assert.True(t, StatusLocked.IsFinalized())
}

func TestAmendmentDescription(t *testing.T) {
	description, err := ValidateAmendmentDescription("  noise from radiator ")
	require.NoError(t, err)
	assert.Equal(t, "noise from radiator", description)

	_, err = ValidateAmendmentDescription("   ")
	assert.Error(t, err)

	_, err = ValidateAmendmentDescription(strings.Repeat("x", MaxAmendmentDescriptionLength+1))
	assert.Error(t, err)
}

func TestUser_BeforeCreate(t *testing.T) {
	user := &User{FirstName: "Jeanne", LastName: "Martin"}

	require.NoError(t, user.BeforeCreate(nil))

	assert.NotEqual(t, uuid.Nil, user.ID)
	assert.Equal(t, "Jeanne Martin", user.FullName)
	assert.Equal(t, "Jeanne Martin", user.DisplayName)
}
