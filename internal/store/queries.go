package store

// Templates take quoted tokens from Builder through fmt verbs. The first verb is
// always a label or relationship type, never a value.
const (
	ensureConstraintQuery = "CREATE CONSTRAINT IF NOT EXISTS FOR (n:%s) REQUIRE n.%s IS UNIQUE"

	upsertNodesQuery = `
		UNWIND $rows AS row
		MERGE (n:%s {%s: row.key})
		SET n += row.props
		RETURN count(n) AS written
	`

	upsertEdgesQuery = `
		UNWIND $rows AS row
		MATCH (a:%s {%s: row.from})
		MATCH (b:%s {%s: row.to})
		MERGE (a)-[r:%s]->(b)
		SET r += row.props
		RETURN row.idx AS idx
	`

	getNodeQuery = `
		MATCH (n:%s {%s: $key})
		RETURN elementId(n) AS id, labels(n) AS labels, properties(n) AS props
		LIMIT 1
	`

	neighborhoodQuery = `
		MATCH (start:%s {%s: $key})
		MATCH (start)-[rels*1..%d]-()
		UNWIND rels AS rel
		WITH DISTINCT rel
		WITH rel, startNode(rel) AS s, endNode(rel) AS e
		RETURN type(rel) AS type, properties(rel) AS props,
			elementId(s) AS start_id, labels(s) AS start_labels, properties(s) AS start_props,
			elementId(e) AS end_id, labels(e) AS end_labels, properties(e) AS end_props
	`

	candidateBlocksQuery = `
		MATCH (n:%s)
		WHERE n.%s IS NOT NULL
		WITH n.%s AS block, collect({id: elementId(n), labels: labels(n), props: properties(n)}) AS members
		WHERE size(members) > 1
		RETURN block, members
		ORDER BY block
	`

	mergeSameAsQuery = `
		MATCH (a:%s {%s: $primary})
		MATCH (b:%s {%s: $duplicate})
		MERGE (a)-[r:` + "`SAME_AS`" + `]->(b)
		SET r.resolved_at = $resolved_at, r.status = $status
		RETURN count(r) AS merged
	`

	sameAsNeighborsQuery = `
		UNWIND $keys AS key
		MATCH (n:%s {%s: key})-[:` + "`SAME_AS`" + `]-(m:%s)
		RETURN key, collect(DISTINCT m.%s) AS neighbors
	`

	countNodesQuery = "MATCH (n:%s) RETURN count(n) AS c"
	countEdgesQuery = "MATCH ()-[r:%s]->() RETURN count(r) AS c"
)
