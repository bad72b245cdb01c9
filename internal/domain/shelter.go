package domain

// Shelter 收容所（对应 shelters 表）
// 约束：0 <= available_beds <= capacity，由条件更新保证
type Shelter struct {
	ShelterID     int64   `db:"shelter_id" json:"shelter_id"`
	Name          string  `db:"name" json:"name"`
	Address       string  `db:"address" json:"address,omitempty"`
	Capacity      int     `db:"capacity" json:"capacity"`
	AvailableBeds int     `db:"available_beds" json:"available_beds"`
	GeoLat        float64 `db:"geo_lat" json:"geo_lat"`
	GeoLng        float64 `db:"geo_lng" json:"geo_lng"`
	Amenities     string  `db:"amenities" json:"amenities,omitempty"`
}

// BedStats 床位统计（dashboard）
type BedStats struct {
	ShelterID       int64 `json:"shelter_id"`
	Capacity        int   `json:"capacity"`
	Available       int   `json:"available"`
	Occupied        int   `json:"occupied"`
	ActiveResidents int   `json:"active_residents"`
}
