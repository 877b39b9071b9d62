package models

import (
	"testing"
	"time"
)

func TestAOI_Validate(t *testing.T) {
	tests := []struct {
		name    string
		aoi     AOI
		wantErr bool
	}{
		{name: "valid box", aoi: AOI{West: 85.52, South: 25.62, East: 85.72, North: 25.82}, wantErr: false},
		{name: "west beyond range", aoi: AOI{West: -181, South: 0, East: 10, North: 10}, wantErr: true},
		{name: "west not less than east", aoi: AOI{West: 10, South: 0, East: 10, North: 10}, wantErr: true},
		{name: "south not less than north", aoi: AOI{West: 0, South: 10, East: 10, North: 10}, wantErr: true},
		{name: "north beyond pole", aoi: AOI{West: 0, South: 0, East: 10, North: 91}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.aoi.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAtmosphericParameters_Validate(t *testing.T) {
	valid := AtmosphericParameters{
		DayOfYear:      100,
		SolarZenithDeg: 40,
		WaterVapor:     2,
		Ozone:          0.3,
		AOT:            0.2,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*AtmosphericParameters)
	}{
		{name: "day of year zero", mutate: func(p *AtmosphericParameters) { p.DayOfYear = 0 }},
		{name: "day of year 367", mutate: func(p *AtmosphericParameters) { p.DayOfYear = 367 }},
		{name: "negative zenith", mutate: func(p *AtmosphericParameters) { p.SolarZenithDeg = -1 }},
		{name: "zenith beyond 90", mutate: func(p *AtmosphericParameters) { p.SolarZenithDeg = 95 }},
		{name: "negative water vapor", mutate: func(p *AtmosphericParameters) { p.WaterVapor = -0.5 }},
		{name: "negative ozone", mutate: func(p *AtmosphericParameters) { p.Ozone = -0.5 }},
		{name: "negative aot", mutate: func(p *AtmosphericParameters) { p.AOT = -0.5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := valid
			tt.mutate(&params)
			if err := params.Validate(); err == nil {
				t.Error("Validate() should fail")
			}
		})
	}
}

func TestSceneRecord_DayOfYear(t *testing.T) {
	tests := []struct {
		name       string
		acquiredAt time.Time
		want       int
	}{
		{name: "new year", acquiredAt: time.Date(2016, 1, 1, 10, 30, 0, 0, time.UTC), want: 1},
		{name: "leap year end", acquiredAt: time.Date(2016, 12, 31, 5, 0, 0, 0, time.UTC), want: 366},
		{name: "non-utc timestamp", acquiredAt: time.Date(2016, 3, 1, 1, 0, 0, 0, time.FixedZone("IST", 5*3600+1800)), want: 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scene := &SceneRecord{AcquiredAt: tt.acquiredAt}
			if got := scene.DayOfYear(); got != tt.want {
				t.Errorf("DayOfYear() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestErrors_IsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  interface{ IsTransient() bool }
		want bool
	}{
		{name: "configuration error", err: &ConfigurationError{Component: "correction", Message: "x"}, want: false},
		{name: "out of domain", err: &OutOfDomainError{Input: "aot", Value: 9}, want: false},
		{name: "numeric", err: &NumericError{Quantity: "offset", Value: 0}, want: false},
		{name: "transient service failure", err: &ExternalServiceError{Service: "atmosphere", Transient: true}, want: true},
		{name: "permanent service failure", err: &ExternalServiceError{Service: "atmosphere", Transient: false}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.IsTransient(); got != tt.want {
				t.Errorf("IsTransient() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOutOfDomainError_Message(t *testing.T) {
	withBand := &OutOfDomainError{Input: "water_vapor", Value: 9.5, Min: 0, Max: 8.5, Band: 3}
	if withBand.Error() != "band 3: water_vapor=9.5 outside table domain [0, 8.5]" {
		t.Errorf("unexpected message: %q", withBand.Error())
	}

	noBand := &OutOfDomainError{Input: "altitude", Value: -1, Min: 0, Max: 3}
	if noBand.Error() != "altitude=-1 outside table domain [0, 3]" {
		t.Errorf("unexpected message: %q", noBand.Error())
	}
}
