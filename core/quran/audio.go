package quran

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/FARHATREKAYA/quran-app/core"
)

const defaultReciterFolder = "Alafasy_64kbps"

// everyayah.com folders per reciter name.
var reciterFolders = map[string]string{
	"Alafasy":    "Alafasy_64kbps",
	"AbdulBasit": "Abdul_Basit_Murattal_64kbps",
	"Husary":     "Husary_64kbps",
	"Minshawi":   "Minshawy_Murattal_64kbps",
	"Ghamdi":     "Ghamadi_40kbps",
}

var ErrAudioNotFound = core.NewNotFoundError("audio")

type VerseAudio struct {
	SurahNumber int    `json:"surah_number"`
	VerseNumber int    `json:"verse_number"`
	Reciter     string `json:"reciter"`
	AudioURL    string `json:"audio_url"`
	Format      string `json:"format"`
}

type ChapterAudio struct {
	SurahNumber int    `json:"surah_number"`
	AudioURL    string `json:"audio_url"`
	Format      string `json:"format"`
}

// ReciterFolder returns the everyayah folder of `reciter`, falling back to Alafasy.
func ReciterFolder(reciter string) string {
	if folder, ok := reciterFolders[reciter]; ok {
		return folder
	}
	return defaultReciterFolder
}

// VerseAudioURL builds `{base}/{folder}/{SSS}{VVV}.mp3`.
func VerseAudioURL(baseURL, reciter string, surah, verse int) string {
	return fmt.Sprintf("%s/%s/%03d%03d.mp3", strings.TrimSuffix(baseURL, "/"), ReciterFolder(reciter), surah, verse)
}

// audioClient fetches chapter recitations from the quran.com API.
type audioClient struct {
	apiBase string
	http    *http.Client
}

func newAudioClient(apiBase string, timeout time.Duration) *audioClient {
	return &audioClient{
		apiBase: strings.TrimSuffix(apiBase, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type chapterRecitationsResponse struct {
	AudioFiles []struct {
		AudioURL string `json:"audio_url"`
		Format   string `json:"format"`
	} `json:"audio_files"`
}

func (c *audioClient) chapterAudio(ctx context.Context, reciterID, surah int) (ChapterAudio, error) {
	url := fmt.Sprintf("%s/chapter_recitations/%d?chapter=%d", c.apiBase, reciterID, surah)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return ChapterAudio{}, errors.Wrap(err, "building request")
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return ChapterAudio{}, errors.Wrap(err, "fetching chapter recitation")
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		return ChapterAudio{}, ErrAudioNotFound
	}

	var data chapterRecitationsResponse
	if err = json.NewDecoder(res.Body).Decode(&data); err != nil {
		return ChapterAudio{}, errors.Wrap(err, "decoding chapter recitation")
	}
	if len(data.AudioFiles) == 0 {
		return ChapterAudio{}, ErrAudioNotFound
	}
	return ChapterAudio{
		SurahNumber: surah,
		AudioURL:    data.AudioFiles[0].AudioURL,
		Format:      data.AudioFiles[0].Format,
	}, nil
}
