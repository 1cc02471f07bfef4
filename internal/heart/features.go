// Package heart scores the 13-feature heart-disease classifier.
package heart

import "fmt"

// FeatureNames is the column order the model was trained on.
var FeatureNames = []string{
	"age", "sex", "chest_pain", "blood_pressure", "cholestrol", "fbs", "restecg",
	"max_heart_rate", "exang", "oldpeak", "slope", "major_vessels", "thal",
}

// Features is the request body of a heart prediction. Pointers distinguish a
// missing field from a legitimate zero.
type Features struct {
	Age           *float64 `json:"age" form:"age" binding:"required,min=20,max=100"`
	Sex           *int     `json:"sex" form:"sex" binding:"required,min=0,max=1"`
	ChestPain     *int     `json:"chest_pain" form:"chest_pain" binding:"required,min=0,max=3"`
	BloodPressure *float64 `json:"blood_pressure" form:"blood_pressure" binding:"required,min=80,max=200"`
	Cholesterol   *float64 `json:"cholestrol" form:"cholestrol" binding:"required,min=100,max=600"`
	FBS           *int     `json:"fbs" form:"fbs" binding:"required,min=0,max=1"`
	RestECG       *int     `json:"restecg" form:"restecg" binding:"required,min=0,max=2"`
	MaxHeartRate  *float64 `json:"max_heart_rate" form:"max_heart_rate" binding:"required,min=60,max=220"`
	Exang         *int     `json:"exang" form:"exang" binding:"required,min=0,max=1"`
	Oldpeak       *float64 `json:"oldpeak" form:"oldpeak" binding:"required,min=-2,max=7"`
	Slope         *int     `json:"slope" form:"slope" binding:"required,min=0,max=2"`
	MajorVessels  *int     `json:"major_vessels" form:"major_vessels" binding:"required,min=0,max=3"`
	Thal          *int     `json:"thal" form:"thal" binding:"required,min=0,max=3"`
}

// Vector flattens f in FeatureNames order.
func (f Features) Vector() ([]float64, error) {
	fields := []any{
		f.Age, f.Sex, f.ChestPain, f.BloodPressure, f.Cholesterol, f.FBS, f.RestECG,
		f.MaxHeartRate, f.Exang, f.Oldpeak, f.Slope, f.MajorVessels, f.Thal,
	}
	out := make([]float64, len(fields))
	for i, v := range fields {
		switch p := v.(type) {
		case *float64:
			if p == nil {
				return nil, fmt.Errorf("missing feature %s", FeatureNames[i])
			}
			out[i] = *p
		case *int:
			if p == nil {
				return nil, fmt.Errorf("missing feature %s", FeatureNames[i])
			}
			out[i] = float64(*p)
		}
	}
	return out, nil
}
