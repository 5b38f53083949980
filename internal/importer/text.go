package importer

import (
	"regexp"
	"strings"
)

// statisticsSection is the header of the summary section that holds no questions
const statisticsSection = "Статистика"

var (
	headerPattern = regexp.MustCompile(`# [a-zA-Zа-яА-ЯёЁ -]+ \d+`)
	namePattern   = regexp.MustCompile(`[a-zA-Zа-яА-ЯёЁ -]+`)
	markerPattern = regexp.MustCompile(`\d+ u?f`)
)

// ParsedQuestion is one question block found in a text file
type ParsedQuestion struct {
	Marker   string
	Question string
	Answer   string
}

// ParsedCategory is a headed section of a text file
type ParsedCategory struct {
	Name      string
	Questions []ParsedQuestion
}

// ParseText splits a question file into categories. A section starts at a
// "# <Name> <N>" header and runs to the next header. Inside a section every
// "<N> f" or "<N> uf" marker opens a block that ends at the next blank line;
// the block's first line is the question and the rest is the answer.
func ParseText(text string) []ParsedCategory {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	headers := headerPattern.FindAllStringIndex(text, -1)

	var categories []ParsedCategory
	for i, loc := range headers {
		header := text[loc[0]:loc[1]]
		if strings.Contains(header, statisticsSection) {
			continue
		}
		end := len(text)
		if i+1 < len(headers) {
			end = headers[i+1][0]
		}
		name := strings.TrimSpace(namePattern.FindString(header))
		categories = appendCategory(categories, name, parseSection(strings.TrimSpace(text[loc[1]:end])))
	}
	return categories
}

// appendCategory merges repeated headers into one category
func appendCategory(categories []ParsedCategory, name string, questions []ParsedQuestion) []ParsedCategory {
	for i := range categories {
		if categories[i].Name == name {
			categories[i].Questions = append(categories[i].Questions, questions...)
			return categories
		}
	}
	return append(categories, ParsedCategory{Name: name, Questions: questions})
}

func parseSection(section string) []ParsedQuestion {
	markers := markerPattern.FindAllStringIndex(section, -1)
	questions := make([]ParsedQuestion, 0, len(markers))
	for _, loc := range markers {
		block := section[loc[1]:]
		if idx := strings.Index(block, "\n\n"); idx >= 0 {
			block = block[:idx]
		}
		block = strings.TrimSpace(block)

		q := ParsedQuestion{Marker: section[loc[0]:loc[1]], Question: block}
		if idx := strings.Index(block, "\n"); idx >= 0 {
			q.Question = strings.TrimSpace(block[:idx])
			q.Answer = strings.TrimSpace(block[idx+1:])
		}
		questions = append(questions, q)
	}
	return questions
}
