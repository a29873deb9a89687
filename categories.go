package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"regexp"
	"strings"
)

const (
	numCategories = 6
	numClues      = 5
	baseClueValue = 100
)

// errContentUnavailable is the terminal pipeline failure, surfaced to the
// session once the attempt bound is exhausted.
var errContentUnavailable = errors.New("content unavailable")

type Clue struct {
	Question    string `json:"question"`
	Answer      string `json:"answer"`
	Value       int    `json:"value"`
	DailyDouble bool   `json:"daily_double"`
	Completed   bool   `json:"completed"`
}

type Category struct {
	Title        string  `json:"title"`
	Clues        []*Clue `json:"clues"`
	NumCluesUsed int     `json:"num_clues_used"`
	Completed    bool    `json:"completed"`
}

type FinalClue struct {
	Category string `json:"category"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// GameContent is the full validated content for one session: both boards,
// with daily doubles placed, plus the final clue.
type GameContent struct {
	Categories       []*Category `json:"categories"`
	DoubleCategories []*Category `json:"double_categories"`
	Final            FinalClue   `json:"final"`
}

// Generator produces candidate trivia content. Implementations must treat
// malformed output (wrong pair count, empty fields) as an error; the fetch
// loop retries around it.
type Generator interface {
	Titles(ctx context.Context, count int) ([]string, error)
	Clues(ctx context.Context, title string) ([]*Clue, error)
}

// fetchGame collects 2*numCategories validated, distinct categories from the
// generator, doubling clue values on the second board, then places daily
// doubles and draws the final clue from the curated pool. Failed batches are
// retried without discarding categories already accepted; once attempts runs
// out the last error is wrapped in errContentUnavailable.
func fetchGame(ctx context.Context, gen Generator, attempts int, r *rand.Rand) (*GameContent, error) {
	var first, second []*Category
	seen := make(map[string]bool)
	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		need := 2*numCategories - len(first) - len(second)
		if need == 0 {
			break
		}

		titles, err := gen.Titles(ctx, min(need, numCategories))
		if err != nil {
			lastErr = err
			continue
		}

		for _, title := range titles {
			if len(first)+len(second) == 2*numCategories {
				break
			}

			rawTitle := formatRaw(title)
			if rawTitle == "" || seen[rawTitle] {
				continue
			}

			clues, err := gen.Clues(ctx, title)
			if err != nil {
				lastErr = err
				continue
			}

			category := &Category{
				Title: title,
				Clues: clues,
			}
			if !approveCategory(category) {
				lastErr = fmt.Errorf("category %q rejected by validation", title)
				continue
			}

			seen[rawTitle] = true

			if len(first) < numCategories {
				first = append(first, category)
			} else {
				for _, clue := range category.Clues {
					clue.Value *= 2
				}
				second = append(second, category)
			}
		}
	}

	if len(first) != numCategories || len(second) != numCategories {
		return nil, fmt.Errorf("%w: %d of %d categories after %d attempts (last error: %v)",
			errContentUnavailable, len(first)+len(second), 2*numCategories, attempts, lastErr)
	}

	placeDailyDoubles(first, second, r)

	return &GameContent{
		Categories:       first,
		DoubleCategories: second,
		Final:            finalClues[r.IntN(len(finalClues))],
	}, nil
}

// approveCategory rejects categories whose title or clues depend on media
// the phones cannot show, or that carry empty fields.
func approveCategory(category *Category) bool {
	rawTitle := formatRaw(category.Title)
	if rawTitle == "" || strings.Contains(rawTitle, "logo") || strings.Contains(rawTitle, "video") {
		return false
	}

	if len(category.Clues) != numClues {
		return false
	}

	for _, clue := range category.Clues {
		rawQuestion := formatRaw(clue.Question)

		if rawQuestion == "" || formatRaw(clue.Answer) == "" {
			return false
		}

		if strings.Contains(rawQuestion, "seenhere") ||
			strings.Contains(rawQuestion, "picturedhere") ||
			strings.Contains(rawQuestion, "heardhere") ||
			strings.Contains(rawQuestion, "video") {
			return false
		}
	}

	return true
}

// clueIndexWeights is the per-difficulty-tier probability of hosting a daily
// double; middling clues are the most likely hosts.
var clueIndexWeights = [numClues]float64{0.05, 0.20, 0.40, 0.20, 0.15}

func weightedClueIndex(r *rand.Rand) int {
	draw := r.Float64()

	sum := 0.0
	for i, weight := range clueIndexWeights {
		sum += weight
		if draw <= sum {
			return i
		}
	}

	return numClues - 1
}

// placeDailyDoubles marks one clue on the first board and two on the second.
// The two second-board categories are always distinct.
func placeDailyDoubles(first, second []*Category, r *rand.Rand) {
	first[r.IntN(len(first))].Clues[weightedClueIndex(r)].DailyDouble = true

	categoryA := r.IntN(len(second))
	categoryB := r.IntN(len(second))
	for categoryB == categoryA {
		categoryB = r.IntN(len(second))
	}

	second[categoryA].Clues[weightedClueIndex(r)].DailyDouble = true
	second[categoryB].Clues[weightedClueIndex(r)].DailyDouble = true
}

// ---- Chat-completion backend ----

type chatClient struct {
	url    string
	key    string
	model  string
	client *http.Client
}

func newChatClient(cfg *Config) *chatClient {
	return &chatClient{
		url:   cfg.backendURL,
		key:   cfg.backendKey,
		model: cfg.backendModel,
		client: &http.Client{
			Timeout: cfg.backendTimeout,
		},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *chatClient) complete(ctx context.Context, prompt string, temperature float64) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
		Temperature: temperature,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.key)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("backend returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("backend returned no choices")
	}

	return parsed.Choices[0].Message.Content, nil
}

// titleCleaner strips list numbering and trailing punctuation the model
// tends to add around category names.
var titleCleaner = regexp.MustCompile(`^[0-9.\-)\s]*(.*?)[.?!]?$`)

func (c *chatClient) Titles(ctx context.Context, count int) ([]string, error) {
	content, err := c.complete(ctx,
		fmt.Sprintf("Generate %d trivia category names separated by the delimiter '---'", count), 1.5)
	if err != nil {
		return nil, err
	}

	var titles []string
	for _, part := range strings.Split(content, "---") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if m := titleCleaner.FindStringSubmatch(part); m != nil {
			part = strings.TrimSpace(m[1])
		}
		if part != "" {
			titles = append(titles, part)
		}
	}

	if len(titles) == 0 {
		return nil, errors.New("backend returned no usable titles")
	}

	return titles, nil
}

var cluePattern = regexp.MustCompile(`[QA][1-5]:`)

func (c *chatClient) Clues(ctx context.Context, title string) ([]*Clue, error) {
	content, err := c.complete(ctx,
		fmt.Sprintf("For the trivia game category '%s', create five increasingly difficult questions in the form Q1: ..., A1: ..., Q2: ..., A2: ..., Q3: ..., A3: ..., Q4: ..., A4: ..., Q5: ..., A5: ...", title), 1.0)
	if err != nil {
		return nil, err
	}

	var parts []string
	for _, part := range cluePattern.Split(content, -1) {
		part = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(part), ","))
		if part != "" {
			parts = append(parts, part)
		}
	}

	if len(parts) != 2*numClues {
		return nil, fmt.Errorf("didn't get five questions and answers for %q: %d parts", title, len(parts))
	}

	clues := make([]*Clue, 0, numClues)
	for i := 0; i < numClues; i++ {
		clues = append(clues, &Clue{
			Question: parts[i*2],
			Answer:   parts[i*2+1],
			Value:    (i + 1) * baseClueValue,
		})
	}

	return clues, nil
}
