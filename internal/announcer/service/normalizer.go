package service

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"math"
	"strings"
	"time"

	"contract-announcer/internal/entity"
	"contract-announcer/pkg/apperror"
	"contract-announcer/pkg/logger"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cast"
)

const samOpportunityURL = "https://sam.gov/opp/%s/view"

// rawOpportunity mirrors the upstream listing shape. Numeric fields stay untyped because the
// API returns them as numbers, strings or null depending on the notice.
type rawOpportunity struct {
	NoticeID            string      `mapstructure:"noticeId"`
	Title               string      `mapstructure:"title"`
	ResponseDeadline    string      `mapstructure:"responseDeadLine"`
	FullParentPathName  string      `mapstructure:"fullParentPathName"`
	SetAsideCode        string      `mapstructure:"typeOfSetAside"`
	SetAsideDescription string      `mapstructure:"typeOfSetAsideDescription"`
	UILink              string      `mapstructure:"uiLink"`
	Award               interface{} `mapstructure:"award"`
	FundingCeiling      interface{} `mapstructure:"fundingCeiling"`
	EstimatedTotalValue interface{} `mapstructure:"estimatedTotalContractValue"`
}

var deadlineLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04-07:00",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
}

const dateOnlyLayout = "2006-01-02"

// setAsideCodes maps upstream set-aside codes to categories.
var setAsideCodes = map[string]entity.SetAside{
	"SDVOSBC":  entity.SetAsideSDVOSB,
	"SDVOSBS":  entity.SetAsideSDVOSB,
	"WOSB":     entity.SetAsideWOSB,
	"WOSBSS":   entity.SetAsideWOSB,
	"EDWOSB":   entity.SetAsideWOSB,
	"EDWOSBSS": entity.SetAsideWOSB,
	"8A":       entity.SetAsideEightA,
	"8AN":      entity.SetAsideEightA,
	"HZC":      entity.SetAsideHUBZone,
	"HZS":      entity.SetAsideHUBZone,
	"VSA":      entity.SetAsideVOSB,
	"VSS":      entity.SetAsideVOSB,
	"SBA":      entity.SetAsideSBA,
	"SBP":      entity.SetAsideSBA,
	"NONE":     entity.SetAsideOpen,
}

// Normalizer converts raw listings into canonical opportunities.
type Normalizer struct {
	log *logger.Logger
}

// NewNormalizer creates a new Normalizer.
func NewNormalizer(log *logger.Logger) *Normalizer {
	return &Normalizer{log: log}
}

// Normalize converts one raw record. The only failure is a missing title or a record whose
// shape cannot be decoded, reported as a malformed-input error.
func (n *Normalizer) Normalize(raw map[string]interface{}) (entity.Opportunity, error) {
	var rec rawOpportunity
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &rec,
	})
	if err != nil {
		return entity.Opportunity{}, err
	}
	if err := decoder.Decode(raw); err != nil {
		return entity.Opportunity{}, apperror.New(apperror.KindMalformedInput, "normalize", err)
	}

	title := cleanString(rec.Title)
	if title == "" {
		return entity.Opportunity{}, apperror.Errorf(apperror.KindMalformedInput, "normalize", "record %q has no title", cleanString(rec.NoticeID))
	}

	opp := entity.Opportunity{
		Title:    title,
		SetAside: entity.SetAsideOpen,
		Agency:   entity.DefaultAgency,
	}

	if raw := cleanString(rec.ResponseDeadline); raw != "" {
		deadline, err := ParseDeadline(raw)
		if err != nil {
			n.log.Warn("Unparseable deadline, treating as pending",
				logger.StringField("title", title),
				logger.StringField("deadline", raw),
				logger.ErrorField(err))
			opp.MissingFields = append(opp.MissingFields, entity.FieldDeadline)
		} else {
			opp.Deadline = &deadline
		}
	} else {
		opp.MissingFields = append(opp.MissingFields, entity.FieldDeadline)
	}

	if value, ok := resolveValue(rec); ok {
		opp.EstimatedValue = &value
	} else {
		opp.MissingFields = append(opp.MissingFields, entity.FieldValue)
	}

	if setAside, ok := resolveSetAside(rec.SetAsideCode, rec.SetAsideDescription); ok {
		opp.SetAside = setAside
	} else {
		opp.MissingFields = append(opp.MissingFields, entity.FieldSetAside)
	}

	if agency := lastPathSegment(rec.FullParentPathName); agency != "" {
		opp.Agency = agency
	} else {
		opp.MissingFields = append(opp.MissingFields, entity.FieldAgency)
	}

	noticeID := cleanString(rec.NoticeID)
	if noticeID != "" {
		opp.ID = noticeID
	} else {
		opp.ID = SynthesizeID(title, opp.Deadline)
		opp.MissingFields = append(opp.MissingFields, entity.FieldID)
	}

	opp.URL = cleanString(rec.UILink)
	if opp.URL == "" {
		opp.MissingFields = append(opp.MissingFields, entity.FieldURL)
		if noticeID != "" {
			opp.URL = fmt.Sprintf(samOpportunityURL, noticeID)
		}
	}

	return opp, nil
}

// NormalizeAll normalizes a batch, logging and dropping records that cannot be used.
func (n *Normalizer) NormalizeAll(raws []map[string]interface{}) []entity.Opportunity {
	opportunities := make([]entity.Opportunity, 0, len(raws))
	for i, raw := range raws {
		opp, err := n.Normalize(raw)
		if err != nil {
			n.log.Warn("Skipping opportunity record", logger.IntField("index", i), logger.ErrorField(err))
			continue
		}
		if len(opp.MissingFields) > 0 {
			n.log.Debug("Opportunity has missing fields",
				logger.StringField("id", opp.ID),
				logger.StringsField("missing_fields", opp.MissingFields))
		}
		opportunities = append(opportunities, opp)
	}
	return opportunities
}

// ParseDeadline parses an ISO-8601 timestamp or date. Values without an offset are UTC; a bare
// date means the end of that day.
func ParseDeadline(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range deadlineLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	if t, err := time.Parse(dateOnlyLayout, value); err == nil {
		return t.Add(24*time.Hour - time.Second), nil
	}
	return time.Time{}, fmt.Errorf("unsupported deadline format %q", value)
}

// SynthesizeID derives a stable id from title and deadline for listings without a notice id.
func SynthesizeID(title string, deadline *time.Time) string {
	key := strings.ToLower(strings.Join(strings.Fields(title), " "))
	deadlineKey := ""
	if deadline != nil {
		deadlineKey = deadline.UTC().Format(time.RFC3339)
	}
	sum := md5.Sum([]byte(key + "|" + deadlineKey))
	return "syn-" + hex.EncodeToString(sum[:])
}

// resolveValue takes the first parseable amount in priority order: award amount, funding
// ceiling, estimated total contract value.
func resolveValue(rec rawOpportunity) (float64, bool) {
	var award interface{}
	if m, ok := rec.Award.(map[string]interface{}); ok {
		award = m["amount"]
	}

	for _, candidate := range []interface{}{award, rec.FundingCeiling, rec.EstimatedTotalValue} {
		if v, ok := parseAmount(candidate); ok {
			return v, true
		}
	}
	return 0, false
}

func parseAmount(v interface{}) (float64, bool) {
	if v == nil {
		return 0, false
	}
	if s, ok := v.(string); ok {
		s = strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)
		if cleanString(s) == "" {
			return 0, false
		}
		v = s
	}
	f, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func resolveSetAside(code, description string) (entity.SetAside, bool) {
	code = strings.ToUpper(cleanString(code))
	description = cleanString(description)
	if code == "" && description == "" {
		return entity.SetAsideOpen, false
	}
	if category, ok := setAsideCodes[code]; ok {
		return category, true
	}

	desc := strings.ToLower(description)
	switch {
	case strings.Contains(desc, "service-disabled"):
		return entity.SetAsideSDVOSB, true
	case strings.Contains(desc, "women"):
		return entity.SetAsideWOSB, true
	case strings.Contains(desc, "8(a)"):
		return entity.SetAsideEightA, true
	case strings.Contains(desc, "hubzone"):
		return entity.SetAsideHUBZone, true
	case strings.Contains(desc, "veteran"):
		return entity.SetAsideVOSB, true
	case strings.Contains(desc, "small business"):
		return entity.SetAsideSBA, true
	case desc == "none" || desc == "n/a":
		return entity.SetAsideOpen, true
	}
	return entity.SetAsideUnknown, true
}

func lastPathSegment(path string) string {
	segments := strings.Split(cleanString(path), ".")
	for i := len(segments) - 1; i >= 0; i-- {
		if s := strings.TrimSpace(segments[i]); s != "" {
			return s
		}
	}
	return ""
}

// cleanString trims whitespace and treats the literal "null" as empty.
func cleanString(s string) string {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "null") {
		return ""
	}
	return s
}
