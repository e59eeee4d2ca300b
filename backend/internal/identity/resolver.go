package identity

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storygraph/backend/internal/graph"
	"storygraph/backend/internal/vector"
	apperrors "storygraph/backend/pkg/errors"
	"storygraph/backend/pkg/logger"
)

// Similarity thresholds on the 1 - cosine distance scale.
const (
	// HiSim and above: accept the best candidate without asking the LLM.
	HiSim = 0.92
	// LoSim and above (but below HiSim): ambiguous, ask the LLM.
	// Below LoSim: mint a new entity without asking the LLM.
	LoSim = 0.40
)

// candidateLimit is how many nearest alias records are considered per mention.
const candidateLimit = 3

// TaskKind selects what an AliasTask writes during commit.
type TaskKind string

const (
	// TaskCreateEntity records a brand-new entity and its first alias.
	TaskCreateEntity TaskKind = "create_entity"
	// TaskAddAlias records a new spelling of an entity the graph already has.
	TaskAddAlias TaskKind = "add_alias"
)

// AliasTask is a deferred alias write produced during resolution and consumed
// during commit. Never mutated after creation.
type AliasTask struct {
	Kind        TaskKind
	EntityID    string
	EntityType  string
	AliasText   string
	DisplayName string
	Chapter     int
	FragmentID  string
	Snippet     string
}

// BulkResolveResult is the outcome of resolving one slot fill.
type BulkResolveResult struct {
	// MappedSlots is the input slot map with every entity-typed value replaced
	// by a stable entity ID (or left verbatim on an LLM skip decision).
	MappedSlots map[string]any
	// Tasks are the pending alias writes, committed separately.
	Tasks []AliasTask
	// AliasMap accumulates entityID -> display name for every entity touched
	// in this pass, so callers need no second lookup.
	AliasMap map[string]string
}

// ChatCompleter is the LLM surface the resolver needs for disambiguation.
type ChatCompleter interface {
	CompleteJSON(ctx context.Context, systemPrompt, userMsg string) (string, error)
}

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Resolver maps raw entity mentions in slot values to stable entity IDs
// backed by alias records in the vector index.
type Resolver struct {
	index  vector.Index
	embed  Embedder
	llm    ChatCompleter
	logger *zap.Logger
}

// NewResolver creates a resolver over the given index, embedder and LLM.
func NewResolver(index vector.Index, embed Embedder, llm ChatCompleter) *Resolver {
	return &Resolver{
		index:  index,
		embed:  embed,
		llm:    llm,
		logger: logger.Get(),
	}
}

// ResolveBulk resolves every entity-typed slot value in slots. Vector index
// failures degrade to the new-entity path; LLM disambiguation failures
// propagate.
func (r *Resolver) ResolveBulk(ctx context.Context, slots map[string]any, entityTypeOf map[string]string, chapter int, fragmentID, snippet string) (BulkResolveResult, error) {
	result := BulkResolveResult{
		MappedSlots: make(map[string]any, len(slots)),
		AliasMap:    make(map[string]string),
	}
	for name, value := range slots {
		result.MappedSlots[name] = value
	}

	names := make([]string, 0, len(entityTypeOf))
	for name := range entityTypeOf {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		entityType := entityTypeOf[name]
		raw, ok := slots[name].(string)
		if !ok || raw == "" {
			continue
		}

		mapped, task, display, err := r.resolveOne(ctx, raw, entityType, chapter, fragmentID, snippet)
		if err != nil {
			return BulkResolveResult{}, err
		}

		result.MappedSlots[name] = mapped
		if task != nil {
			result.Tasks = append(result.Tasks, *task)
		}
		if display != "" && mapped != raw {
			result.AliasMap[mapped] = display
		}
	}
	return result, nil
}

// resolveOne maps one raw mention to an entity ID (or leaves it verbatim on a
// skip decision). Returns the mapped value, an optional pending task, and the
// display name of the resolved entity.
func (r *Resolver) resolveOne(ctx context.Context, raw, entityType string, chapter int, fragmentID, snippet string) (string, *AliasTask, string, error) {
	candidates := r.nearestAliases(ctx, raw, entityType)

	if len(candidates) > 0 && candidates[0].Score >= HiSim {
		best := candidates[0]
		return r.accept(best.StringField("entity_id"), entityType, raw, best, chapter, fragmentID, snippet)
	}

	if len(candidates) > 0 && candidates[0].Score >= LoSim {
		decision, err := r.disambiguate(ctx, raw, entityType, candidates, chapter, snippet)
		if err != nil {
			return "", nil, "", err
		}
		switch decision.Action {
		case "use":
			for _, c := range candidates {
				if c.StringField("entity_id") == decision.EntityID {
					alias := decision.AliasText
					if alias == "" {
						alias = raw
					}
					return r.accept(decision.EntityID, entityType, alias, c, chapter, fragmentID, snippet)
				}
			}
			r.logger.Warn("LLM chose an entity outside the candidate list, minting new",
				zap.String("raw", raw),
				zap.String("entity_id", decision.EntityID),
			)
		case "skip":
			return raw, nil, "", nil
		}
		// "new" or no actionable decision falls through.
	}

	entityID := MintEntityID(entityType)
	task := &AliasTask{
		Kind:        TaskCreateEntity,
		EntityID:    entityID,
		EntityType:  entityType,
		AliasText:   raw,
		DisplayName: raw,
		Chapter:     chapter,
		FragmentID:  fragmentID,
		Snippet:     snippet,
	}
	return entityID, task, raw, nil
}

// accept reuses an existing entity. A mention spelled differently from the
// matched alias queues an add-alias task; an exact spelling needs nothing.
func (r *Resolver) accept(entityID, entityType, alias string, matched vector.Hit, chapter int, fragmentID, snippet string) (string, *AliasTask, string, error) {
	display := matched.StringField("display_name")
	if display == "" {
		display = matched.StringField("alias_text")
	}

	if matched.StringField("alias_text") == alias {
		return entityID, nil, display, nil
	}
	task := &AliasTask{
		Kind:        TaskAddAlias,
		EntityID:    entityID,
		EntityType:  entityType,
		AliasText:   alias,
		DisplayName: display,
		Chapter:     chapter,
		FragmentID:  fragmentID,
		Snippet:     snippet,
	}
	return entityID, task, display, nil
}

// nearestAliases returns the top candidates for raw, or nil when the vector
// index is unavailable: resolution then falls through to the new-entity path
// instead of failing the whole fragment.
func (r *Resolver) nearestAliases(ctx context.Context, raw, entityType string) []vector.Hit {
	vec, err := r.embed.Embed(ctx, raw)
	if err != nil {
		r.logger.Warn("Alias embedding failed, treating as no candidates",
			zap.String("raw", raw),
			zap.Error(err),
		)
		return nil
	}

	hits, err := r.index.Nearest(ctx, vector.CollectionAliases, vec,
		map[string]string{"entity_type": entityType}, candidateLimit)
	if err != nil {
		r.logger.Warn("Alias search failed, treating as no candidates",
			zap.String("raw", raw),
			zap.Error(err),
		)
		return nil
	}
	return hits
}

type decision struct {
	Action    string `json:"action"`
	EntityID  string `json:"entity_id,omitempty"`
	AliasText string `json:"alias_text,omitempty"`
}

// disambiguate asks the LLM to pick between the candidate entities. The call
// and the parse share one retry; a second failure propagates.
func (r *Resolver) disambiguate(ctx context.Context, raw, entityType string, candidates []vector.Hit, chapter int, snippet string) (decision, error) {
	userMsg := disambiguationMessage(raw, entityType, candidates, chapter, snippet)

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		content, err := r.llm.CompleteJSON(ctx, disambiguationSystemPrompt, userMsg)
		if err != nil {
			lastErr = err
			continue
		}
		var d decision
		if err := json.Unmarshal([]byte(content), &d); err != nil {
			lastErr = fmt.Errorf("failed to parse disambiguation decision: %w", err)
			continue
		}
		return d, nil
	}
	return decision{}, apperrors.NewLLMError(
		fmt.Sprintf("disambiguation failed for %q", raw), lastErr)
}

// CommitAliases writes every queued alias record to the vector index and
// returns the graph statements that create brand-new entities. Duplicate
// alias inserts are treated as success.
func (r *Resolver) CommitAliases(ctx context.Context, tasks []AliasTask) ([]graph.Statement, error) {
	var statements []graph.Statement
	for _, task := range tasks {
		vec, err := r.embed.Embed(ctx, task.AliasText)
		if err != nil {
			return nil, apperrors.NewVectorError(
				fmt.Sprintf("failed to embed alias %q", task.AliasText), err)
		}

		rec := vector.Record{
			ID:     aliasRecordID(task.EntityID, task.AliasText),
			Vector: vec,
			Payload: map[string]any{
				"entity_id":    task.EntityID,
				"entity_type":  task.EntityType,
				"alias_text":   task.AliasText,
				"display_name": task.DisplayName,
				"chapter":      int64(task.Chapter),
				"fragment_id":  task.FragmentID,
				"snippet":      task.Snippet,
			},
		}
		if err := r.index.Upsert(ctx, vector.CollectionAliases, rec); err != nil {
			if errors.Is(err, vector.ErrDuplicate) {
				r.logger.Debug("Alias already present",
					zap.String("entity_id", task.EntityID),
					zap.String("alias", task.AliasText),
				)
			} else {
				return nil, apperrors.NewVectorError(
					fmt.Sprintf("failed to store alias %q", task.AliasText), err)
			}
		}

		if task.Kind == TaskCreateEntity {
			statements = append(statements, graph.Statement{
				Text: `MERGE (e:Entity {id: $id})
ON CREATE SET e.type = $type,
              e.display_name = $display_name,
              e.first_chapter = $chapter`,
				Params: map[string]any{
					"id":           task.EntityID,
					"type":         task.EntityType,
					"display_name": task.DisplayName,
					"chapter":      task.Chapter,
				},
			})
		}
	}
	return statements, nil
}

// LookupDisplayNames resolves entity IDs to display names in one batched
// fetch against the alias records.
func (r *Resolver) LookupDisplayNames(ctx context.Context, ids []string) (map[string]string, error) {
	if len(ids) == 0 {
		return map[string]string{}, nil
	}

	records, err := r.index.FetchByKeyword(ctx, vector.CollectionAliases, "entity_id", ids, len(ids)*candidateLimit)
	if err != nil {
		return nil, apperrors.NewVectorError("display name lookup failed", err)
	}

	names := make(map[string]string, len(ids))
	for _, rec := range records {
		id := rec.StringField("entity_id")
		if id == "" {
			continue
		}
		if _, seen := names[id]; seen {
			continue
		}
		if name := rec.StringField("display_name"); name != "" {
			names[id] = name
		} else if alias := rec.StringField("alias_text"); alias != "" {
			names[id] = alias
		}
	}
	return names, nil
}

// MintEntityID generates a fresh entity ID like "character-3fa8b21c".
func MintEntityID(entityType string) string {
	id := uuid.New()
	return fmt.Sprintf("%s-%s", strings.ToLower(entityType), hex.EncodeToString(id[:4]))
}

// aliasRecordID derives a deterministic record ID so that re-inserting the
// same alias collides instead of accumulating copies.
func aliasRecordID(entityID, aliasText string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(entityID+"|"+aliasText)).String()
}
