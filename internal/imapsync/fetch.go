package imapsync

import (
	"fmt"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
)

const (
	// fetchBatchSize bounds how many messages one FETCH command requests
	fetchBatchSize = 50

	// liveFetchFallbackWindow is how far behind UIDNEXT a live fetch starts
	// when no watermark is known. A heuristic: it can both miss and
	// duplicate messages. Tunable, not a correctness guarantee.
	liveFetchFallbackWindow = 50
)

// fetchItems lists what every FETCH retrieves: envelope and structure for
// metadata, plus the full raw body without setting \Seen
func fetchItems() ([]imap.FetchItem, *imap.BodySectionName) {
	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{
		imap.FetchEnvelope,
		imap.FetchUid,
		imap.FetchBodyStructure,
		section.FetchItem(),
	}
	return items, section
}

// searchAllUIDs returns every UID in the selected mailbox
func searchAllUIDs(c *client.Client) ([]uint32, error) {
	criteria := imap.NewSearchCriteria()
	criteria.Uid = new(imap.SeqSet)
	criteria.Uid.AddRange(1, 0)

	uids, err := c.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}
	return uids, nil
}

// searchUIDsSince returns UIDs in the open-ended range [start:*], filtered
// to those strictly above the given watermark. IMAP servers answer a
// range whose lower bound exceeds the mailbox's last UID with that last
// message anyway, so the filter is required.
func searchUIDsSince(c *client.Client, start, watermark uint32) ([]uint32, error) {
	criteria := imap.NewSearchCriteria()
	criteria.Uid = new(imap.SeqSet)
	criteria.Uid.AddRange(start, 0)

	uids, err := c.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}

	fresh := uids[:0]
	for _, uid := range uids {
		if uid > watermark {
			fresh = append(fresh, uid)
		}
	}
	return fresh, nil
}

// liveFetchStart computes where an incremental fetch begins
func liveFetchStart(watermark, uidNext uint32) uint32 {
	if watermark > 0 {
		return watermark + 1
	}
	if uidNext > liveFetchFallbackWindow {
		return uidNext - liveFetchFallbackWindow
	}
	return 1
}

// fetchUIDs retrieves full messages for the given UIDs in batches and
// hands each to sink. Stops at the first failed batch.
func fetchUIDs(c *client.Client, uids []uint32, sink func(*imap.Message)) error {
	items, _ := fetchItems()

	for offset := 0; offset < len(uids); offset += fetchBatchSize {
		end := offset + fetchBatchSize
		if end > len(uids) {
			end = len(uids)
		}

		seqset := new(imap.SeqSet)
		seqset.AddNum(uids[offset:end]...)

		messages := make(chan *imap.Message, fetchBatchSize)
		done := make(chan error, 1)
		go func() {
			done <- c.UidFetch(seqset, items, messages)
		}()

		for msg := range messages {
			sink(msg)
		}

		if err := <-done; err != nil {
			return fmt.Errorf("%w: %v", ErrFetchFailed, err)
		}
	}

	return nil
}
