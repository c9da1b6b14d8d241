package models

import (
	"fmt"
	"slices"
	"strings"
)

// Condition is the ordered rating of an element's physical state, best first.
type Condition string

const (
	ConditionNew          Condition = "NEW"
	ConditionGood         Condition = "GOOD"
	ConditionNormalWear   Condition = "NORMAL_WEAR"
	ConditionDegraded     Condition = "DEGRADED"
	ConditionOutOfService Condition = "OUT_OF_SERVICE"
)

var conditionOrder = []Condition{
	ConditionNew,
	ConditionGood,
	ConditionNormalWear,
	ConditionDegraded,
	ConditionOutOfService,
}

// Conditions returns every condition, best first.
func Conditions() []Condition {
	return slices.Clone(conditionOrder)
}

// Rank returns the position of c in the ordered scale (0 is NEW) or -1.
func (c Condition) Rank() int {
	return slices.Index(conditionOrder, c)
}

func (c Condition) IsValid() bool {
	return c.Rank() >= 0
}

// WorseThan reports whether c sits lower on the scale than other.
func (c Condition) WorseThan(other Condition) bool {
	return c.Rank() > other.Rank()
}

// AllowsDegradations reports whether degradation tags may be recorded.
func (c Condition) AllowsDegradations() bool {
	return c == ConditionDegraded || c == ConditionOutOfService
}

type ElementCategory string

const (
	CategoryWall       ElementCategory = "WALL"
	CategoryFloor      ElementCategory = "FLOOR"
	CategoryCeiling    ElementCategory = "CEILING"
	CategoryDoor       ElementCategory = "DOOR"
	CategoryWindow     ElementCategory = "WINDOW"
	CategoryShutter    ElementCategory = "SHUTTER"
	CategoryElectrical ElementCategory = "ELECTRICAL"
	CategoryPlumbing   ElementCategory = "PLUMBING"
	CategoryHeating    ElementCategory = "HEATING"
	CategoryFurniture  ElementCategory = "FURNITURE"
	CategoryAppliance  ElementCategory = "APPLIANCE"
	CategoryOther      ElementCategory = "OTHER"
)

// Nature is a material or finish tag. Which natures apply depends on the
// element category; NatureOther is accepted everywhere and must carry text.
type Nature string

const (
	NatureOther Nature = "OTHER"

	NaturePaint         Nature = "PAINT"
	NatureWallpaper     Nature = "WALLPAPER"
	NatureTile          Nature = "TILE"
	NaturePlaster       Nature = "PLASTER"
	NatureWoodPaneling  Nature = "WOOD_PANELING"
	NatureFabric        Nature = "FABRIC"
	NatureParquet       Nature = "PARQUET"
	NatureLaminate      Nature = "LAMINATE"
	NatureCarpet        Nature = "CARPET"
	NatureVinyl         Nature = "VINYL"
	NatureConcrete      Nature = "CONCRETE"
	NatureStone         Nature = "STONE"
	NatureSuspended     Nature = "SUSPENDED"
	NatureWood          Nature = "WOOD"
	NaturePVC           Nature = "PVC"
	NatureMetal         Nature = "METAL"
	NatureGlass         Nature = "GLASS"
	NatureAluminium     Nature = "ALUMINIUM"
	NatureDoubleGlazing Nature = "DOUBLE_GLAZING"
	NatureSingleGlazing Nature = "SINGLE_GLAZING"
	NatureSocket        Nature = "SOCKET"
	NatureSwitch        Nature = "SWITCH"
	NatureLightFixture  Nature = "LIGHT_FIXTURE"
	NatureElectricPanel Nature = "ELECTRIC_PANEL"
	NatureSink          Nature = "SINK"
	NatureBathtub       Nature = "BATHTUB"
	NatureShower        Nature = "SHOWER"
	NatureToilet        Nature = "TOILET"
	NatureTap           Nature = "TAP"
	NatureWaterHeater   Nature = "WATER_HEATER"
	NatureRadiator      Nature = "RADIATOR"
	NatureElectricHeat  Nature = "ELECTRIC_HEATER"
	NatureBoiler        Nature = "BOILER"
	NatureUnderfloor    Nature = "UNDERFLOOR"
	NatureOven          Nature = "OVEN"
	NatureHob           Nature = "HOB"
	NatureFridge        Nature = "FRIDGE"
	NatureDishwasher    Nature = "DISHWASHER"
	NatureWasher        Nature = "WASHING_MACHINE"
	NatureHood          Nature = "HOOD"
	NatureMicrowave     Nature = "MICROWAVE"
)

var naturesByCategory = map[ElementCategory][]Nature{
	CategoryWall:       {NaturePaint, NatureWallpaper, NatureTile, NaturePlaster, NatureWoodPaneling, NatureFabric},
	CategoryFloor:      {NatureParquet, NatureLaminate, NatureTile, NatureCarpet, NatureVinyl, NatureConcrete, NatureStone},
	CategoryCeiling:    {NaturePaint, NaturePlaster, NatureWoodPaneling, NatureSuspended},
	CategoryDoor:       {NatureWood, NaturePVC, NatureMetal, NatureGlass},
	CategoryWindow:     {NatureWood, NaturePVC, NatureAluminium, NatureDoubleGlazing, NatureSingleGlazing},
	CategoryShutter:    {NatureWood, NaturePVC, NatureAluminium, NatureMetal},
	CategoryElectrical: {NatureSocket, NatureSwitch, NatureLightFixture, NatureElectricPanel},
	CategoryPlumbing:   {NatureSink, NatureBathtub, NatureShower, NatureToilet, NatureTap, NatureWaterHeater},
	CategoryHeating:    {NatureRadiator, NatureElectricHeat, NatureBoiler, NatureUnderfloor},
	CategoryFurniture:  {NatureWood, NatureMetal, NatureFabric, NatureGlass},
	CategoryAppliance:  {NatureOven, NatureHob, NatureFridge, NatureDishwasher, NatureWasher, NatureHood, NatureMicrowave},
	CategoryOther:      {},
}

func (c ElementCategory) IsValid() bool {
	_, ok := naturesByCategory[c]
	return ok
}

// Natures returns the closed nature set for the category, without OTHER.
func (c ElementCategory) Natures() []Nature {
	return slices.Clone(naturesByCategory[c])
}

// Accepts reports whether n may tag an element of category c.
func (c ElementCategory) Accepts(n Nature) bool {
	if n == NatureOther {
		return c.IsValid()
	}
	return slices.Contains(naturesByCategory[c], n)
}

type Degradation string

const (
	DegradationScratch       Degradation = "SCRATCH"
	DegradationStain         Degradation = "STAIN"
	DegradationCrack         Degradation = "CRACK"
	DegradationHole          Degradation = "HOLE"
	DegradationChip          Degradation = "CHIP"
	DegradationMoisture      Degradation = "MOISTURE"
	DegradationMold          Degradation = "MOLD"
	DegradationRust          Degradation = "RUST"
	DegradationBroken        Degradation = "BROKEN"
	DegradationMissing       Degradation = "MISSING"
	DegradationWorn          Degradation = "WORN"
	DegradationDiscoloration Degradation = "DISCOLORATION"
	DegradationLoose         Degradation = "LOOSE"
	DegradationNotWorking    Degradation = "NOT_WORKING"
	DegradationOther         Degradation = "OTHER"
)

var degradations = []Degradation{
	DegradationScratch, DegradationStain, DegradationCrack, DegradationHole, DegradationChip,
	DegradationMoisture, DegradationMold, DegradationRust, DegradationBroken, DegradationMissing,
	DegradationWorn, DegradationDiscoloration, DegradationLoose, DegradationNotWorking,
	DegradationOther,
}

func (d Degradation) IsValid() bool {
	return slices.Contains(degradations, d)
}

// NatureTag is one material/finish entry; Other carries the free text for NatureOther.
type NatureTag struct {
	Nature Nature `json:"nature"`
	Other  string `json:"other,omitempty"`
}

func (t NatureTag) Validate(category ElementCategory) error {
	if !category.Accepts(t.Nature) {
		return fmt.Errorf("nature %q is not valid for category %s", t.Nature, category)
	}
	return validateEscape(string(t.Nature), string(NatureOther), t.Other)
}

// Label renders the tag for display and export.
func (t NatureTag) Label() string {
	if t.Nature == NatureOther {
		return strings.TrimSpace(t.Other)
	}
	return string(t.Nature)
}

// DegradationTag is one observed damage type; Other carries the free text for DegradationOther.
type DegradationTag struct {
	Type  Degradation `json:"type"`
	Other string      `json:"other,omitempty"`
}

func (t DegradationTag) Validate() error {
	if !t.Type.IsValid() {
		return fmt.Errorf("unknown degradation type %q", t.Type)
	}
	return validateEscape(string(t.Type), string(DegradationOther), t.Other)
}

func (t DegradationTag) Label() string {
	if t.Type == DegradationOther {
		return strings.TrimSpace(t.Other)
	}
	return string(t.Type)
}

const MaxTagTextLength = 120

func validateEscape(code, otherCode, text string) error {
	text = strings.TrimSpace(text)
	if code == otherCode {
		if text == "" {
			return fmt.Errorf("%s tag requires a description", otherCode)
		}
		if len(text) > MaxTagTextLength {
			return fmt.Errorf("%s tag description exceeds %d characters", otherCode, MaxTagTextLength)
		}
		return nil
	}
	if text != "" {
		return fmt.Errorf("only %s tags may carry a description", otherCode)
	}
	return nil
}

type RoomType string

const (
	RoomEntrance   RoomType = "ENTRANCE"
	RoomLiving     RoomType = "LIVING_ROOM"
	RoomDining     RoomType = "DINING_ROOM"
	RoomKitchen    RoomType = "KITCHEN"
	RoomBedroom    RoomType = "BEDROOM"
	RoomBathroom   RoomType = "BATHROOM"
	RoomShowerRoom RoomType = "SHOWER_ROOM"
	RoomWC         RoomType = "WC"
	RoomOffice     RoomType = "OFFICE"
	RoomLaundry    RoomType = "LAUNDRY"
	RoomHallway    RoomType = "HALLWAY"
	RoomCellar     RoomType = "CELLAR"
	RoomAttic      RoomType = "ATTIC"
	RoomGarage     RoomType = "GARAGE"
	RoomBalcony    RoomType = "BALCONY"
	RoomTerrace    RoomType = "TERRACE"
	RoomGarden     RoomType = "GARDEN"
	RoomOther      RoomType = "OTHER"
)

var roomTypes = []RoomType{
	RoomEntrance, RoomLiving, RoomDining, RoomKitchen, RoomBedroom, RoomBathroom, RoomShowerRoom,
	RoomWC, RoomOffice, RoomLaundry, RoomHallway, RoomCellar, RoomAttic, RoomGarage, RoomBalcony,
	RoomTerrace, RoomGarden, RoomOther,
}

func (r RoomType) IsValid() bool {
	return slices.Contains(roomTypes, r)
}

type PhotoType string

const (
	PhotoOverview PhotoType = "OVERVIEW"
	PhotoDetail   PhotoType = "DETAIL"
	PhotoSurface  PhotoType = "SURFACE"
	PhotoMeter    PhotoType = "METER"
)

func (p PhotoType) IsValid() bool {
	switch p {
	case PhotoOverview, PhotoDetail, PhotoSurface, PhotoMeter:
		return true
	}
	return false
}

type MeterType string

const (
	MeterElectricity MeterType = "ELECTRICITY"
	MeterWater       MeterType = "WATER"
	MeterGas         MeterType = "GAS"
)

func (m MeterType) IsValid() bool {
	switch m {
	case MeterElectricity, MeterWater, MeterGas:
		return true
	}
	return false
}
