package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/AlecAivazis/survey/v2"
)

// PromptHoldingsValue prompts for the current market value of an account's
// holdings.
func PromptHoldingsValue(account string) (float64, error) {
	return promptAmount(
		fmt.Sprintf("Current holdings value for %s:", account),
		"Total market value of all securities held in this account today.",
	)
}

// PromptCashBalance prompts for the idle cash sitting in an account.
func PromptCashBalance(account string) (float64, error) {
	return promptAmount(
		fmt.Sprintf("Cash balance for %s:", account),
		"Uninvested cash in the account. Enter 0 if none.",
	)
}

// PromptValuationDate prompts for the valuation date, defaulting to today.
func PromptValuationDate() (time.Time, error) {
	var dateStr string
	prompt := &survey.Input{
		Message: "Valuation date (YYYY-MM-DD) or press Enter for today:",
		Help:    "The date the terminal values are measured at. Must not predate any ledger entry.",
		Default: time.Now().Format("2006-01-02"),
	}

	err := survey.AskOne(prompt, &dateStr, survey.WithValidator(func(val interface{}) error {
		str := strings.TrimSpace(val.(string))
		if str == "" {
			return nil
		}
		parsed, err := time.Parse("2006-01-02", str)
		if err != nil {
			return fmt.Errorf("invalid date format, use YYYY-MM-DD")
		}
		if parsed.After(time.Now().AddDate(0, 0, 1)) {
			return fmt.Errorf("valuation date cannot be in the future")
		}
		return nil
	}))
	if err != nil {
		return time.Time{}, err
	}

	dateStr = strings.TrimSpace(dateStr)
	if dateStr == "" {
		dateStr = time.Now().Format("2006-01-02")
	}
	return time.Parse("2006-01-02", dateStr)
}

func promptAmount(message, help string) (float64, error) {
	var raw string
	prompt := &survey.Input{
		Message: message,
		Help:    help,
	}

	err := survey.AskOne(prompt, &raw, survey.WithValidator(func(val interface{}) error {
		str := strings.ReplaceAll(strings.TrimSpace(val.(string)), ",", "")
		if str == "" {
			return fmt.Errorf("amount cannot be empty")
		}
		amount, err := strconv.ParseFloat(str, 64)
		if err != nil {
			return fmt.Errorf("invalid number")
		}
		if amount < 0 {
			return fmt.Errorf("amount cannot be negative")
		}
		return nil
	}))
	if err != nil {
		return 0, err
	}

	return strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(raw), ",", ""), 64)
}
