/*
Package config loads splice recipes: named rewrite requests and the files they
apply to.

	            +-------------+
	            |   Recipe    |
	            | (Transforms)|
	            +------+------+
	                   |
	      +------------+------------+
	      |            |            |
	+-----+-----+ +----+----+ +-----+-----+
	|   YAML    | |   HCL   | |   JSON    |
	|  Parser   | | Parser  | |  Parser   |
	+-----------+ +---------+ +-----------+

🎯 Purpose:
- Reads recipes in YAML, HCL or JSON, picked by extension
- Validates every transform before anything runs
- Compiles anchors, payload files and `when` conditions once
- Produces plan.Requests per target file

🔄 Flow:
 1. Load reads the file and picks a parser
 2. The parser decodes and resolves ${var.name} references
 3. Validate checks names, anchors, modes, payloads and conditions
 4. Compile selects transforms by name and reads payload files
 5. Compiled.For filters by `when` and returns the requests for one file

📝 Recipe shape (YAML):

	files:
	  - "src/app/projects/{kanban,list}/page.tsx"
	vars:
	  component: ProfessionalKanbanBoard
	transforms:
	  - name: kanban-import
	    anchor:
	      import_block: true
	    mode: insert-after
	    payload: "import ${var.component} from '@/components/task/${var.component}'\n"
	    marker: "import ${var.component}"
	    required: true
	  - name: tasks-tab
	    anchor:
	      block:
	        header: "{activeTab === 'tasks' && ("
	        open: "("
	        close: ")"
	    mode: replace-region
	    payload_file: payloads/tasks-tab.tsx
	    when: ext == ".tsx" && content contains "activeTab"

🔍 Example:

	recipe, err := config.Load(ctx, "kanban.splice.yaml", nil)
	if err != nil {
		return err
	}
	compiled, err := recipe.Compile(nil)
	if err != nil {
		return err
	}
	reqs, err := compiled.For(path, string(content))
*/
package config
