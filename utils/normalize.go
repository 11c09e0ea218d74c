package utils

import (
	"reflect"
	"strings"
)

const cnCountryCode = "+86"

// NormalizeDTO trims string fields (and *string fields) on a pointer-to-struct DTO.
func NormalizeDTO(dto any) {
	v := reflect.ValueOf(dto)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return
	}
	s := v.Elem()
	if s.Kind() != reflect.Struct {
		return
	}
	for i := 0; i < s.NumField(); i++ {
		f := s.Field(i)
		if !f.CanSet() {
			continue
		}
		switch f.Kind() {
		case reflect.String:
			f.SetString(strings.TrimSpace(f.String()))
		case reflect.Ptr:
			if !f.IsNil() && f.Elem().Kind() == reflect.String {
				f.Elem().SetString(strings.TrimSpace(f.Elem().String()))
			}
		}
	}
}

// NationalCNPhone strips whitespace and a leading +86 from a mainland number.
func NationalCNPhone(phone string) string {
	phone = strings.Join(strings.Fields(phone), "")
	return strings.TrimPrefix(phone, cnCountryCode)
}

// InternationalCNPhone prefixes +86 when the number carries no country code.
func InternationalCNPhone(phone string) string {
	phone = strings.Join(strings.Fields(phone), "")
	if phone == "" || strings.HasPrefix(phone, "+") {
		return phone
	}
	return cnCountryCode + phone
}
