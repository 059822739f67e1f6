package repair

// the count queries only read, so they can run at the same time. The fixes run in the order of
// Checks inside a single transaction
var Checks = []Check{
	{
		ID:    "missing_topic",
		Label: "Messages whose topic does not exist",
		CountSQL: `SELECT COUNT(*) FROM DBPREFIXmessages AS m
		LEFT JOIN DBPREFIXtopics AS t ON t.id_topic = m.id_topic
		WHERE t.id_topic IS NULL`,
		fix: fixMissingTopics,
	},
	{
		ID:    "empty_topic",
		Label: "Topics without any messages",
		CountSQL: `SELECT COUNT(*) FROM DBPREFIXtopics AS t
		LEFT JOIN DBPREFIXmessages AS m ON m.id_topic = t.id_topic
		WHERE m.id_msg IS NULL`,
		fix: execFix(`DELETE FROM DBPREFIXtopics
		WHERE id_topic NOT IN (SELECT id_topic FROM DBPREFIXmessages)`),
	},
	{
		ID:    "wrong_first_last",
		Label: "Topics with the wrong first or last message",
		CountSQL: `SELECT COUNT(*) FROM DBPREFIXtopics AS t
		JOIN (SELECT id_topic, MIN(id_msg) AS first_msg, MAX(id_msg) AS last_msg
			FROM DBPREFIXmessages GROUP BY id_topic) AS agg ON agg.id_topic = t.id_topic
		WHERE t.id_first_msg <> agg.first_msg OR t.id_last_msg <> agg.last_msg`,
		fix: execFix(`UPDATE DBPREFIXtopics SET
		id_first_msg = (SELECT MIN(m.id_msg) FROM DBPREFIXmessages AS m WHERE m.id_topic = DBPREFIXtopics.id_topic),
		id_last_msg = (SELECT MAX(m.id_msg) FROM DBPREFIXmessages AS m WHERE m.id_topic = DBPREFIXtopics.id_topic)
		WHERE id_topic IN (SELECT id_topic FROM DBPREFIXmessages)`),
	},
	{
		ID:    "wrong_replies",
		Label: "Topics with the wrong number of replies",
		CountSQL: `SELECT COUNT(*) FROM DBPREFIXtopics AS t
		JOIN (SELECT id_topic, COUNT(*) - 1 AS replies FROM DBPREFIXmessages GROUP BY id_topic) AS agg
			ON agg.id_topic = t.id_topic
		WHERE t.num_replies <> agg.replies`,
		fix: execFix(`UPDATE DBPREFIXtopics SET
		num_replies = (SELECT COUNT(*) - 1 FROM DBPREFIXmessages AS m WHERE m.id_topic = DBPREFIXtopics.id_topic)
		WHERE id_topic IN (SELECT id_topic FROM DBPREFIXmessages)`),
	},
	{
		ID:    "missing_board",
		Label: "Topics whose board does not exist",
		CountSQL: `SELECT COUNT(*) FROM DBPREFIXtopics AS t
		LEFT JOIN DBPREFIXboards AS b ON b.id_board = t.id_board
		WHERE b.id_board IS NULL`,
		fix: fixMissingBoards,
	},
	{
		ID:    "missing_category",
		Label: "Boards whose category does not exist",
		CountSQL: `SELECT COUNT(*) FROM DBPREFIXboards AS b
		LEFT JOIN DBPREFIXcategories AS c ON c.id_cat = b.id_cat
		WHERE c.id_cat IS NULL`,
		fix: fixMissingCategories,
	},
	{
		ID:    "missing_member",
		Label: "Messages posted by members that no longer exist",
		CountSQL: `SELECT COUNT(*) FROM DBPREFIXmessages AS m
		LEFT JOIN DBPREFIXmembers AS mem ON mem.id_member = m.id_member
		WHERE m.id_member <> 0 AND mem.id_member IS NULL`,
		fix: execFix(`UPDATE DBPREFIXmessages SET id_member = 0
		WHERE id_member <> 0 AND id_member NOT IN (SELECT id_member FROM DBPREFIXmembers)`),
	},
	{
		ID:    "missing_poll_topic",
		Label: "Polls that don't belong to a topic",
		CountSQL: `SELECT COUNT(*) FROM DBPREFIXpolls AS p
		LEFT JOIN DBPREFIXtopics AS t ON t.id_poll = p.id_poll
		WHERE t.id_topic IS NULL`,
		fix: execFix(`DELETE FROM DBPREFIXpolls
		WHERE id_poll NOT IN (SELECT id_poll FROM DBPREFIXtopics)`),
	},
	{
		ID:    "orphan_attachment",
		Label: "Attachments whose message does not exist",
		CountSQL: `SELECT COUNT(*) FROM DBPREFIXattachments AS a
		LEFT JOIN DBPREFIXmessages AS m ON m.id_msg = a.id_msg
		WHERE m.id_msg IS NULL`,
		fix: execFix(`DELETE FROM DBPREFIXattachments
		WHERE id_msg NOT IN (SELECT id_msg FROM DBPREFIXmessages)`),
	},
	{
		ID:    "board_counts",
		Label: "Boards with the wrong topic or post count",
		CountSQL: `SELECT COUNT(*) FROM DBPREFIXboards AS b
		WHERE b.num_topics <> (SELECT COUNT(*) FROM DBPREFIXtopics AS t WHERE t.id_board = b.id_board)
		OR b.num_posts <> (SELECT COUNT(*) FROM DBPREFIXmessages AS m WHERE m.id_board = b.id_board)`,
		fix: execFix(`UPDATE DBPREFIXboards SET
		num_topics = (SELECT COUNT(*) FROM DBPREFIXtopics AS t WHERE t.id_board = DBPREFIXboards.id_board),
		num_posts = (SELECT COUNT(*) FROM DBPREFIXmessages AS m WHERE m.id_board = DBPREFIXboards.id_board)`),
	},
}
