package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/FARHATREKAYA/quran-app/core/quran"
)

// seed loads a corpus file (JSON or YAML, by extension) and replaces the stored corpus with it.
func (cli *commandLine) seed(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "reading corpus")
	}

	var corpus quran.Corpus
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		corpus, err = decodeJSONCorpus(data)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &corpus)
	default:
		return fmt.Errorf("unsupported corpus format %q", ext)
	}
	if err != nil {
		return errors.Wrap(err, "decoding corpus")
	}

	if err = cli.quranSvc.Seed(context.Background(), corpus); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "seeded %d surahs, %d verses, %d reciters\n", len(corpus.Surahs), len(corpus.Verses), len(corpus.Reciters))
	return nil
}

// the API hides the timestamp keys, a corpus file carries them
type jsonTimestamp struct {
	quran.Timestamp
	ReciterID int `json:"reciter_id"`
	SurahID   int `json:"surah_id"`
}

func decodeJSONCorpus(data []byte) (quran.Corpus, error) {
	var file struct {
		quran.Corpus
		Timestamps []jsonTimestamp `json:"timestamps"`
	}
	if err := json.Unmarshal(data, &file); err != nil {
		return quran.Corpus{}, err
	}

	corpus := file.Corpus
	corpus.Timestamps = make([]quran.Timestamp, 0, len(file.Timestamps))
	for _, ts := range file.Timestamps {
		ts.Timestamp.ReciterID = ts.ReciterID
		ts.Timestamp.SurahID = ts.SurahID
		corpus.Timestamps = append(corpus.Timestamps, ts.Timestamp)
	}
	return corpus, nil
}
