package catalog

// SeedTemplates returns the built-in narrative templates imported at
// startup. Statement bodies are Go text/template sources; slot values are
// escaped before interpolation, chunk metadata travels as statement
// parameters.
func SeedTemplates() []Template {
	return []Template{
		{
			Name:        "trait_attribution_v1",
			Version:     "1.0.0",
			Title:       "Trait attribution",
			Description: "Character gains, reveals or is attributed a personal trait.",
			Details:     "The protagonist might demonstrate unexpected bravery during a crisis, a supporting character could reveal their intelligence through solving a complex puzzle, or a villain's cruelty might become evident through their actions. This captures moments where a character's nature or qualities become apparent through the narrative.",
			Category:    "EventInsert",
			Slots: map[string]SlotDefinition{
				"character": {Name: "character", Type: SlotString, Description: "Character name", Required: true, EntityType: "CHARACTER"},
				"trait":     {Name: "trait", Type: SlotString, Description: "Trait or quality name", Required: true},
				"summary":   {Name: "summary", Type: SlotString, Description: "Brief explanation", Required: false},
			},
			Relation: &RelationDescriptor{Predicate: "HAS_TRAIT", Subject: "$character", Object: "$trait", Value: "$trait"},
			ExtractCypher: `MERGE (ch:Entity {id: '{{.character}}'})
MERGE (tr:Trait {name: '{{.trait}}'})
MERGE (ch)-[r:HAS_TRAIT {chunk_id: $chunk_id}]->(tr)
SET r.chapter = {{.chapter}},
    r.stage = {{.stage}},
    r.confidence = {{.confidence}},
    r.summary = '{{.summary}}',
    r.details = '{{.details}}'
RETURN ch.id AS source, 'HAS_TRAIT' AS relation, tr.name AS value`,
			AugmentCypher: `MATCH (ch:Entity {id: '{{.character}}'})-[r:HAS_TRAIT]->(tr:Trait)
RETURN ch.id AS source, 'HAS_TRAIT' AS relation, tr.name AS value, r.summary AS summary, r.stage AS stage, r.chapter AS chapter
ORDER BY r.chapter`,
			SupportsExtract: true,
			SupportsAugment: true,
			UseBase:         true,
			ReturnMap:       map[string]string{"source": "entity", "relation": "predicate", "value": "literal"},
		},
		{
			Name:        "membership_change_v1",
			Version:     "1.0.0",
			Title:       "Membership change",
			Description: "Character joins, leaves or betrays a faction.",
			Details:     "This includes scenarios where a knight pledges allegiance to a new lord, a spy infiltrates an enemy organization, a rebel abandons their cause after a crisis of conscience, or a long-standing member is expelled from their guild for breaking rules. Any narrative moment that changes a character's affiliation or group membership.",
			Category:    "EventInsert",
			Slots: map[string]SlotDefinition{
				"character": {Name: "character", Type: SlotString, Description: "Character name", Required: true, EntityType: "CHARACTER"},
				"faction":   {Name: "faction", Type: SlotString, Description: "Faction name", Required: true, EntityType: "FACTION"},
				"summary":   {Name: "summary", Type: SlotString, Required: false},
			},
			Relation: &RelationDescriptor{Predicate: "MEMBER_OF", Subject: "$character", Object: "$faction"},
			ExtractCypher: `MERGE (ch:Entity {id: '{{.character}}'})
MERGE (f:Entity {id: '{{.faction}}'})
MERGE (ch)-[r:MEMBER_OF {chunk_id: $chunk_id}]->(f)
SET r.chapter = {{.chapter}},
    r.stage = {{.stage}},
    r.confidence = {{.confidence}},
    r.summary = '{{.summary}}',
    r.details = '{{.details}}'
RETURN ch.id AS source, 'MEMBER_OF' AS relation, f.id AS target`,
			AugmentCypher: `MATCH (ch:Entity {id: '{{.character}}'})-[r:MEMBER_OF]->(f:Entity)
RETURN ch.id AS source, 'MEMBER_OF' AS relation, f.id AS target, r.summary AS summary, r.stage AS stage, r.chapter AS chapter
ORDER BY r.chapter`,
			SupportsExtract: true,
			SupportsAugment: true,
			UseBase:         true,
			ReturnMap:       map[string]string{"source": "entity", "relation": "predicate", "target": "entity"},
		},
		{
			Name:        "character_relation_v1",
			Version:     "1.0.0",
			Title:       "Character relation",
			Description: "Creates or updates a social relation between two characters (ally, rival, sibling, parent, etc.).",
			Details:     "This captures situations where characters discover they're long-lost siblings, former friends become bitter enemies after a betrayal, strangers form a strategic alliance against a common threat, or a mentor takes on a new apprentice. Any significant development or change in how two characters relate to each other.",
			Category:    "EventInsert",
			Slots: map[string]SlotDefinition{
				"character_a":   {Name: "character_a", Type: SlotString, Description: "First character", Required: true, EntityType: "CHARACTER"},
				"character_b":   {Name: "character_b", Type: SlotString, Description: "Second character", Required: true, EntityType: "CHARACTER"},
				"relation_type": {Name: "relation_type", Type: SlotString, Description: "Relation type: ALLY, RIVAL, SIBLING, PARENT", Required: true},
				"summary":       {Name: "summary", Type: SlotString, Required: false},
			},
			Relation: &RelationDescriptor{Predicate: "RELATION_WITH", Subject: "$character_a", Object: "$character_b", Value: "$relation_type"},
			ExtractCypher: `MERGE (a:Entity {id: '{{.character_a}}'})
MERGE (b:Entity {id: '{{.character_b}}'})
MERGE (a)-[r:RELATION_WITH {chunk_id: $chunk_id}]->(b)
SET r.relation_type = '{{.relation_type}}',
    r.chapter = {{.chapter}},
    r.stage = {{.stage}},
    r.confidence = {{.confidence}},
    r.summary = '{{.summary}}',
    r.details = '{{.details}}'
RETURN a.id AS source, r.relation_type AS relation, b.id AS target`,
			AugmentCypher: `MATCH (a:Entity {id: '{{.character_a}}'})-[r:RELATION_WITH]-(b:Entity)
RETURN a.id AS source, r.relation_type AS relation, b.id AS target, r.summary AS summary, r.stage AS stage, r.chapter AS chapter
ORDER BY r.chapter`,
			SupportsExtract: true,
			SupportsAugment: true,
			UseBase:         true,
			ReturnMap:       map[string]string{"source": "entity", "relation": "literal", "target": "entity"},
			AugmentRequired: []string{"character_a"},
		},
		{
			Name:        "ownership_v1",
			Version:     "1.0.0",
			Title:       "Item ownership",
			Description: "Character acquires or possesses an item.",
			Details:     "This includes a hero finding an ancient magical sword, a thief stealing a valuable artifact, a character receiving a meaningful gift or heirloom, or someone purchasing an important tool for their quest. Any narrative moment where a character gains possession of something significant to the story.",
			Category:    "EventInsert",
			Slots: map[string]SlotDefinition{
				"character": {Name: "character", Type: SlotString, Required: true, EntityType: "CHARACTER"},
				"item":      {Name: "item", Type: SlotString, Required: true},
				"summary":   {Name: "summary", Type: SlotString, Required: false},
			},
			Relation: &RelationDescriptor{Predicate: "OWNS_ITEM", Subject: "$character", Object: "$item", Value: "$item"},
			ExtractCypher: `MERGE (ch:Entity {id: '{{.character}}'})
MERGE (it:Item {name: '{{.item}}'})
MERGE (ch)-[r:OWNS_ITEM {chunk_id: $chunk_id}]->(it)
SET r.chapter = {{.chapter}},
    r.stage = {{.stage}},
    r.confidence = {{.confidence}},
    r.summary = '{{.summary}}',
    r.details = '{{.details}}'
RETURN ch.id AS source, 'OWNS_ITEM' AS relation, it.name AS value`,
			AugmentCypher: `MATCH (ch:Entity {id: '{{.character}}'})-[r:OWNS_ITEM]->(it:Item)
RETURN ch.id AS source, 'OWNS_ITEM' AS relation, it.name AS value, r.summary AS summary, r.stage AS stage, r.chapter AS chapter
ORDER BY r.chapter`,
			SupportsExtract: true,
			SupportsAugment: true,
			UseBase:         true,
			ReturnMap:       map[string]string{"source": "entity", "relation": "predicate", "value": "literal"},
		},
		{
			Name:        "relocation_v1",
			Version:     "1.0.0",
			Title:       "Relocation / arrives at place",
			Description: "Character changes location, arrives or leaves a place.",
			Details:     "This captures a traveler reaching a mysterious new city, a refugee fleeing their homeland, an explorer discovering uncharted territory, or a prisoner escaping their cell. Any significant movement of characters between meaningful locations in the narrative landscape.",
			Category:    "EventInsert",
			Slots: map[string]SlotDefinition{
				"character": {Name: "character", Type: SlotString, Required: true, EntityType: "CHARACTER"},
				"place":     {Name: "place", Type: SlotString, Required: true, EntityType: "LOCATION"},
				"summary":   {Name: "summary", Type: SlotString, Required: false},
			},
			Relation: &RelationDescriptor{Predicate: "AT_LOCATION", Subject: "$character", Object: "$place"},
			ExtractCypher: `MERGE (ch:Entity {id: '{{.character}}'})
MERGE (pl:Entity {id: '{{.place}}'})
MERGE (ch)-[r:AT_LOCATION {chunk_id: $chunk_id}]->(pl)
SET r.chapter = {{.chapter}},
    r.stage = {{.stage}},
    r.confidence = {{.confidence}},
    r.summary = '{{.summary}}',
    r.details = '{{.details}}'
RETURN ch.id AS source, 'AT_LOCATION' AS relation, pl.id AS target`,
			AugmentCypher: `MATCH (ch:Entity {id: '{{.character}}'})-[r:AT_LOCATION]->(pl:Entity)
RETURN ch.id AS source, 'AT_LOCATION' AS relation, pl.id AS target, r.summary AS summary, r.stage AS stage, r.chapter AS chapter
ORDER BY r.chapter`,
			SupportsExtract: true,
			SupportsAugment: true,
			UseBase:         true,
			ReturnMap:       map[string]string{"source": "entity", "relation": "predicate", "target": "entity"},
		},
		{
			Name:        "emotion_state_v1",
			Version:     "1.0.0",
			Title:       "Emotional state toward target",
			Description: "Character feels an emotion toward another character or in general.",
			Details:     "This applies when a protagonist develops feelings of love for another character, a villain's hatred intensifies after defeat, a character experiences profound grief following a loss, or someone struggles with jealousy over another's success. Captures the emotional landscape and psychological developments driving character motivations.",
			Category:    "EventInsert",
			Slots: map[string]SlotDefinition{
				"character": {Name: "character", Type: SlotString, Description: "Name of the character", Required: true, EntityType: "CHARACTER"},
				"emotion":   {Name: "emotion", Type: SlotString, Description: "Emotion name, e.g., HATE, LOVE", Required: true},
				"target":    {Name: "target", Type: SlotString, Description: "Target of the emotion", Required: false, EntityType: "CHARACTER"},
				"summary":   {Name: "summary", Type: SlotString, Description: "Narrative summary", Required: false},
			},
			Relation: &RelationDescriptor{Predicate: "FEELS", Subject: "$character", Object: "$target", Value: "$emotion"},
			ExtractCypher: `MERGE (ch:Entity {id: '{{.character}}'})
MERGE (em:Emotion {name: '{{.emotion}}'})
MERGE (ch)-[r:FEELS {chunk_id: $chunk_id}]->(em)
SET r.target = '{{.target}}',
    r.chapter = {{.chapter}},
    r.stage = {{.stage}},
    r.confidence = {{.confidence}},
    r.summary = '{{.summary}}',
    r.details = '{{.details}}'
RETURN ch.id AS source, 'FEELS' AS relation, em.name AS value, r.target AS target`,
			AugmentCypher: `MATCH (ch:Entity {id: '{{.character}}'})-[r:FEELS]->(em:Emotion)
RETURN ch.id AS source, 'FEELS' AS relation, em.name AS value, r.target AS target, r.summary AS summary, r.stage AS stage, r.chapter AS chapter
ORDER BY r.chapter`,
			SupportsExtract: true,
			SupportsAugment: true,
			UseBase:         true,
			ReturnMap:       map[string]string{"source": "entity", "relation": "predicate", "value": "literal", "target": "entity"},
		},
		{
			Name:        "vow_promise_v1",
			Version:     "1.0.0",
			Title:       "Vow or promise",
			Description: "Character makes a vow, promise or obligation toward a goal or target.",
			Details:     "This includes a knight swearing to avenge their fallen comrade, a character pledging to protect someone vulnerable, a villain making a threat of retribution, or someone committing to an important personal goal. Any declaration of intent or commitment that drives future narrative actions.",
			Category:    "EventInsert",
			Slots: map[string]SlotDefinition{
				"character": {Name: "character", Type: SlotString, Description: "Character name", Required: true, EntityType: "CHARACTER"},
				"goal":      {Name: "goal", Type: SlotString, Description: "Promise essence / goal", Required: true},
				"summary":   {Name: "summary", Type: SlotString, Required: false},
			},
			Relation: &RelationDescriptor{Predicate: "VOWS", Subject: "$character", Object: "$goal", Value: "$goal"},
			ExtractCypher: `MERGE (ch:Entity {id: '{{.character}}'})
MERGE (v:Vow {goal: '{{.goal}}'})
MERGE (ch)-[r:VOWS {chunk_id: $chunk_id}]->(v)
SET r.chapter = {{.chapter}},
    r.stage = {{.stage}},
    r.confidence = {{.confidence}},
    r.summary = '{{.summary}}',
    r.details = '{{.details}}'
RETURN ch.id AS source, 'VOWS' AS relation, v.goal AS value`,
			AugmentCypher: `MATCH (ch:Entity {id: '{{.character}}'})-[r:VOWS]->(v:Vow)
RETURN ch.id AS source, 'VOWS' AS relation, v.goal AS value, r.summary AS summary, r.stage AS stage, r.chapter AS chapter
ORDER BY r.chapter`,
			SupportsExtract: true,
			SupportsAugment: true,
			UseBase:         true,
			ReturnMap:       map[string]string{"source": "entity", "relation": "predicate", "value": "literal"},
		},
		{
			Name:        "death_event_v1",
			Version:     "1.0.0",
			Title:       "Death of character",
			Description: "Marks a character as deceased.",
			Details:     "This applies to heroic sacrifices in battle, victims of murder or assassination, natural deaths of significance to the plot, or presumed deaths later revealed to be false. Captures pivotal moments where a character's life ends or is believed to end, changing the trajectory of the narrative.",
			Category:    "EventInsert",
			Slots: map[string]SlotDefinition{
				"character": {Name: "character", Type: SlotString, Description: "Character name", Required: true, EntityType: "CHARACTER"},
				"summary":   {Name: "summary", Type: SlotString, Required: false},
			},
			Relation: &RelationDescriptor{Predicate: "IS_ALIVE", Subject: "$character", Value: "false"},
			ExtractCypher: `MERGE (ch:Entity {id: '{{.character}}'})
SET ch.is_alive = false,
    ch.death_chapter = {{.chapter}},
    ch.death_stage = {{.stage}},
    ch.death_summary = '{{.summary}}'
RETURN ch.id AS source, 'IS_ALIVE' AS relation, 'false' AS value`,
			AugmentCypher: `MATCH (ch:Entity {id: '{{.character}}'})
RETURN ch.id AS source, 'IS_ALIVE' AS relation, toString(coalesce(ch.is_alive, true)) AS value, ch.death_summary AS summary, ch.death_chapter AS chapter`,
			SupportsExtract: true,
			SupportsAugment: true,
			UseBase:         true,
			ReturnMap:       map[string]string{"source": "entity", "relation": "predicate", "value": "literal"},
		},
		{
			Name:        "belief_ideology_v1",
			Version:     "1.0.0",
			Title:       "Belief or ideology",
			Description: "Character professes belief in deity, ideology or philosophy.",
			Details:     "This includes a character's conversion to a new religion after a profound experience, a politician embracing a radical ideology, someone finding comfort in spiritual practices during hardship, or a character questioning and abandoning their long-held beliefs. Reflects the philosophical and spiritual dimensions that shape character motivations and worldviews.",
			Category:    "EventInsert",
			Slots: map[string]SlotDefinition{
				"character": {Name: "character", Type: SlotString, Description: "Character name", Required: true, EntityType: "CHARACTER"},
				"ideology":  {Name: "ideology", Type: SlotString, Description: "Name of ideology, deity or belief", Required: true},
				"summary":   {Name: "summary", Type: SlotString, Required: false},
			},
			Relation: &RelationDescriptor{Predicate: "BELIEVES_IN", Subject: "$character", Object: "$ideology", Value: "$ideology"},
			ExtractCypher: `MERGE (ch:Entity {id: '{{.character}}'})
MERGE (b:Belief {name: '{{.ideology}}'})
MERGE (ch)-[r:BELIEVES_IN {chunk_id: $chunk_id}]->(b)
SET r.chapter = {{.chapter}},
    r.stage = {{.stage}},
    r.confidence = {{.confidence}},
    r.summary = '{{.summary}}',
    r.details = '{{.details}}'
RETURN ch.id AS source, 'BELIEVES_IN' AS relation, b.name AS value`,
			AugmentCypher: `MATCH (ch:Entity {id: '{{.character}}'})-[r:BELIEVES_IN]->(b:Belief)
RETURN ch.id AS source, 'BELIEVES_IN' AS relation, b.name AS value, r.summary AS summary, r.stage AS stage, r.chapter AS chapter
ORDER BY r.chapter`,
			SupportsExtract: true,
			SupportsAugment: true,
			UseBase:         true,
			ReturnMap:       map[string]string{"source": "entity", "relation": "predicate", "value": "literal"},
		},
		{
			Name:        "title_acquisition_v1",
			Version:     "1.0.0",
			Title:       "Title acquisition",
			Description: "Character receives or is granted a new title or role.",
			Details:     "This captures a soldier's promotion to general, a commoner ascending to nobility, an apprentice becoming a master of their craft, or someone being appointed to a position of authority. Any formal recognition or change in status that affects how others perceive and interact with the character within the narrative.",
			Category:    "EventInsert",
			Slots: map[string]SlotDefinition{
				"character":  {Name: "character", Type: SlotString, Description: "Character name", Required: true, EntityType: "CHARACTER"},
				"title_name": {Name: "title_name", Type: SlotString, Description: "Title/role name", Required: true},
				"summary":    {Name: "summary", Type: SlotString, Required: false},
			},
			Relation: &RelationDescriptor{Predicate: "HAS_TITLE", Subject: "$character", Object: "$title_name", Value: "$title_name"},
			ExtractCypher: `MERGE (ch:Entity {id: '{{.character}}'})
MERGE (t:Title {name: '{{.title_name}}'})
MERGE (ch)-[r:HAS_TITLE {chunk_id: $chunk_id}]->(t)
SET r.chapter = {{.chapter}},
    r.stage = {{.stage}},
    r.confidence = {{.confidence}},
    r.summary = '{{.summary}}',
    r.details = '{{.details}}'
RETURN ch.id AS source, 'HAS_TITLE' AS relation, t.name AS value`,
			AugmentCypher: `MATCH (ch:Entity {id: '{{.character}}'})-[r:HAS_TITLE]->(t:Title)
RETURN ch.id AS source, 'HAS_TITLE' AS relation, t.name AS value, r.summary AS summary, r.stage AS stage, r.chapter AS chapter
ORDER BY r.chapter`,
			SupportsExtract: true,
			SupportsAugment: true,
			UseBase:         true,
			ReturnMap:       map[string]string{"source": "entity", "relation": "predicate", "value": "literal"},
		},
	}
}
