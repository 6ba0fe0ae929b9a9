package resolve

import (
	"mycar-backend/internal/vehicle"
	"mycar-backend/lib/textutil"
)

// BatterySection isolates the product table of a battery results page.
func BatterySection(payload string) string {
	section, _ := textutil.Between(payload, "data-model", "</tbody>", 0)
	return section
}

func looseJsonField(source, name string) string {
	value, _ := textutil.Between(source, `"`+name+`": "`, `"`, 0)
	if value != "" {
		return value
	}
	return textutil.JsonField(source, name)
}

// ParseBatteryPart reads the battery group and warehouse price out of a
// battery results section. partType may be nil when the catalog has no
// battery category.
func ParseBatteryPart(section string, partType *vehicle.PartType) vehicle.PartInfo {
	info := vehicle.PartInfo{
		Name:      "Battery",
		SpecValue: looseJsonField(section, "group_number"),
		Cost:      textutil.ToDecimal(looseJsonField(section, "warehouseprice")),
	}
	if partType != nil {
		info.TypeId = partType.Id
		info.Type = partType
	}
	return info
}
